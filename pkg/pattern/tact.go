package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TactInfo is metadata extracted from a tact file.
type TactInfo struct {
	Path     string
	Name     string
	Duration time.Duration
}

// DefaultTactDuration is assumed when a tact file does not declare its
// playback length.
const DefaultTactDuration = 10 * time.Minute

// LoadTactInfo reads a tact file and extracts its name and declared
// duration. Files without a project duration fall back to
// DefaultTactDuration.
func LoadTactInfo(path string) (TactInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TactInfo{}, fmt.Errorf("read tact file: %w", err)
	}

	var doc struct {
		Name    string `json:"name"`
		Project struct {
			Name              string  `json:"name"`
			MediaFileDuration float64 `json:"mediaFileDuration"`
		} `json:"project"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return TactInfo{}, fmt.Errorf("parse tact file: %w", err)
	}

	info := TactInfo{Path: path, Duration: DefaultTactDuration}
	info.Name = doc.Name
	if info.Name == "" {
		info.Name = doc.Project.Name
	}
	if doc.Project.MediaFileDuration > 0 {
		info.Duration = time.Duration(doc.Project.MediaFileDuration * float64(time.Second))
	}
	return info, nil
}
