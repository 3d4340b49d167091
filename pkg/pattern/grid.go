package pattern

import (
	"fmt"

	"github.com/haptic-bridge/haptic-go/pkg/device"
)

// Panel dimensions. Each vest panel carries 20 motors in 5 rows of 4,
// indexed row-major from the top left.
const (
	GridRows   = 5
	GridCols   = 4
	MotorCount = GridRows * GridCols
)

// Grid is one panel's intensity layout, [row][col] with values 0-100.
type Grid [GridRows][GridCols]int

// Dots converts the grid to dot points, skipping inactive motors.
func (g Grid) Dots() []device.DotPoint {
	var dots []device.DotPoint
	for row := 0; row < GridRows; row++ {
		for col := 0; col < GridCols; col++ {
			if intensity := g[row][col]; intensity > 0 {
				dots = append(dots, device.DotPoint{
					Index:     row*GridCols + col,
					Intensity: intensity,
				})
			}
		}
	}
	return dots
}

// Step is one time slice of a sequence, covering both vest panels.
type Step struct {
	Front Grid `json:"front"`
	Back  Grid `json:"back"`
}

// validate rejects intensities outside 0-100.
func (s Step) validate() error {
	check := func(panel string, g Grid) error {
		for row := 0; row < GridRows; row++ {
			for col := 0; col < GridCols; col++ {
				if v := g[row][col]; v < 0 || v > 100 {
					return fmt.Errorf("step %s[%d][%d]: intensity %d out of range 0-100", panel, row, col, v)
				}
			}
		}
		return nil
	}
	if err := check("front", s.Front); err != nil {
		return err
	}
	return check("back", s.Back)
}

// DecodeSteps converts the wire representation of a custom sequence
// (a list of objects with "front" and "back" 5x4 number arrays) into
// validated Steps.
func DecodeSteps(raw []any) ([]Step, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("pattern has no steps")
	}

	steps := make([]Step, 0, len(raw))
	for i, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("step %d: not an object", i)
		}

		var step Step
		front, err := decodeGrid(obj["front"])
		if err != nil {
			return nil, fmt.Errorf("step %d front: %w", i, err)
		}
		back, err := decodeGrid(obj["back"])
		if err != nil {
			return nil, fmt.Errorf("step %d back: %w", i, err)
		}
		step.Front = front
		step.Back = back

		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// decodeGrid accepts a missing panel (all motors off) or a full 5x4
// array of numbers.
func decodeGrid(raw any) (Grid, error) {
	var g Grid
	if raw == nil {
		return g, nil
	}

	rows, ok := raw.([]any)
	if !ok {
		return g, fmt.Errorf("panel is not an array")
	}
	if len(rows) != GridRows {
		return g, fmt.Errorf("panel has %d rows, want %d", len(rows), GridRows)
	}

	for r, rawRow := range rows {
		cols, ok := rawRow.([]any)
		if !ok {
			return g, fmt.Errorf("row %d is not an array", r)
		}
		if len(cols) != GridCols {
			return g, fmt.Errorf("row %d has %d columns, want %d", r, len(cols), GridCols)
		}
		for c, rawVal := range cols {
			num, ok := rawVal.(float64)
			if !ok || num != float64(int(num)) {
				return g, fmt.Errorf("row %d column %d: intensity must be an integer", r, c)
			}
			g[r][c] = int(num)
		}
	}
	return g, nil
}
