package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haptic-bridge/haptic-go/pkg/device"
	"github.com/haptic-bridge/haptic-go/pkg/log"
	"github.com/haptic-bridge/haptic-go/pkg/pattern"
	"github.com/haptic-bridge/haptic-go/pkg/wire"
)

// handlerFunc processes one command. Returning nil means the handler
// sent its own response.
type handlerFunc func(cmd *wire.Command) wire.Result

func (s *Server) setupHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		// System commands
		"ping":                      s.handlePing,
		"get_status":                s.handleGetStatus,
		"get_device_status":         s.handleGetDeviceStatus,
		"register_event_callback":   s.handleRegisterEventCallback,
		"unregister_event_callback": s.handleUnregisterEventCallback,
		"shutdown":                  s.handleShutdown,

		// Vest motor commands
		"activate_discrete":   s.handleActivateDiscrete,
		"activate_funnelling": s.handleActivateFunnelling,

		// Glove commands
		"activate_glove_motor": s.handleActivateGloveMotor,

		// Pattern player commands
		"play_pattern":       s.handlePlayPattern,
		"stop_pattern":       s.handleStopPattern,
		"is_pattern_playing": s.handleIsPatternPlaying,

		// Array pattern commands
		"play_wave_pattern":        s.handlePlayWavePattern,
		"play_alternating_pattern": s.handlePlayAlternatingPattern,
		"play_custom_pattern":      s.handlePlayCustomPattern,

		// Advanced commands
		"submit_dot":         s.handleSubmitDot,
		"submit_path":        s.handleSubmitPath,
		"register_tact_file": s.handleRegisterTactFile,
		"submit_registered":  s.handleSubmitRegistered,
	}
}

func (s *Server) handlePing(cmd *wire.Command) wire.Result {
	return wire.OK(wire.Result{
		"message":   "Pong",
		"timestamp": wire.Timestamp(time.Now()),
		"echo":      cmd.Params.StringOr("message", ""),
	})
}

func (s *Server) handleGetStatus(cmd *wire.Command) wire.Result {
	return wire.Result(s.statusData())
}

func (s *Server) handleGetDeviceStatus(cmd *wire.Command) wire.Result {
	deviceType := cmd.Params.StringOr("device_type", "all")
	if deviceType == "all" {
		return wire.Result(s.deviceStatus())
	}

	positions := map[string]device.Position{
		"vest":          device.PositionVest,
		"forearm_left":  device.PositionForearmL,
		"forearm_right": device.PositionForearmR,
		"glove_left":    device.PositionGloveL,
		"glove_right":   device.PositionGloveR,
	}
	pos, ok := positions[deviceType]
	if !ok {
		return wire.Fail(fmt.Sprintf("Unknown device type: %s", deviceType))
	}
	return wire.Result{
		"device_type": deviceType,
		"connected":   s.session.IsConnected(pos),
	}
}

func (s *Server) handleRegisterEventCallback(cmd *wire.Command) wire.Result {
	eventType, ok := cmd.Params.String("event_type")
	if !ok {
		return wire.Fail("Missing event_type parameter")
	}

	s.subs.Subscribe(eventType, cmd.ClientID)
	s.logger.Info("event subscription added", "event_type", eventType, "client_id", cmd.ClientID)
	return wire.OK(wire.Result{
		"event_type": eventType,
		"message":    fmt.Sprintf("Registered for %s events", eventType),
	})
}

func (s *Server) handleUnregisterEventCallback(cmd *wire.Command) wire.Result {
	eventType, ok := cmd.Params.String("event_type")
	if !ok {
		s.subs.UnsubscribeAll(cmd.ClientID)
		return wire.OK(wire.Result{"message": "Unregistered from all events"})
	}

	if !s.subs.Unsubscribe(eventType, cmd.ClientID) {
		return wire.Fail(fmt.Sprintf("Not registered for %s events", eventType))
	}
	return wire.OK(wire.Result{
		"event_type": eventType,
		"message":    fmt.Sprintf("Unregistered from %s events", eventType),
	})
}

// handleShutdown answers before any teardown so the acknowledgment
// reaches the client while the socket is still open. A forced shutdown
// terminates right after the response, without draining playback tasks
// or in-flight handlers: force is the escape hatch for a wedged device
// session, so it must not wait on anything.
func (s *Server) handleShutdown(cmd *wire.Command) wire.Result {
	force := cmd.Params.BoolOr("force", false)
	s.logger.Info("shutdown requested", "client_id", cmd.ClientID, "force", force)

	s.sendResponse(cmd.ClientID, cmd.CommandID, wire.OK(wire.Result{
		"message": "Server is shutting down",
		"force":   force,
	}))

	if force {
		s.running.Store(false)
		s.config.ExitFunc(0)
		return nil
	}

	go s.Stop()
	return nil
}

// vestPanels maps the protocol's panel names onto device positions.
var vestPanels = map[string]device.Position{
	"front": device.PositionVestFront,
	"back":  device.PositionVestBack,
}

func (s *Server) handleActivateDiscrete(cmd *wire.Command) wire.Result {
	panel := cmd.Params.StringOr("panel", "")
	pos, ok := vestPanels[panel]
	if !ok {
		return wire.Fail("Panel must be 'front' or 'back'")
	}

	motorIndex, ok := cmd.Params.Int("motor_index")
	if !ok || motorIndex < 0 || motorIndex > 19 {
		return wire.Fail("Motor index must be an integer between 0 and 19")
	}

	intensity, ok := cmd.Params.IntOr("intensity", 100)
	if !ok || intensity < 0 || intensity > 100 {
		return wire.Fail("Intensity must be an integer between 0 and 100")
	}

	duration, ok := cmd.Params.IntOr("duration_ms", 500)
	if !ok || duration <= 0 {
		return wire.Fail("Duration must be a positive integer")
	}

	key := fmt.Sprintf("discrete-%s-%d", panel, motorIndex)
	dots := []device.DotPoint{{Index: motorIndex, Intensity: intensity}}
	if err := s.session.SubmitDot(key, pos, dots, duration); err != nil {
		s.logger.Warn("discrete activation failed", "error", err)
		return wire.Fail("Failed to activate motor")
	}

	return wire.OK(wire.Result{
		"panel":       panel,
		"motor_index": motorIndex,
		"intensity":   intensity,
		"duration_ms": duration,
	})
}

func (s *Server) handleActivateFunnelling(cmd *wire.Command) wire.Result {
	panel := cmd.Params.StringOr("panel", "")
	pos, ok := vestPanels[panel]
	if !ok {
		return wire.Fail("Panel must be 'front' or 'back'")
	}

	x, ok := cmd.Params.Float("x")
	if !ok || x < 0 || x > 1 {
		return wire.Fail("X coordinate must be a number between 0.0 and 1.0")
	}

	y, ok := cmd.Params.Float("y")
	if !ok || y < 0 || y > 1 {
		return wire.Fail("Y coordinate must be a number between 0.0 and 1.0")
	}

	intensity, ok := cmd.Params.IntOr("intensity", 100)
	if !ok || intensity < 0 || intensity > 100 {
		return wire.Fail("Intensity must be an integer between 0 and 100")
	}

	duration, ok := cmd.Params.IntOr("duration_ms", 500)
	if !ok || duration <= 0 {
		return wire.Fail("Duration must be a positive integer")
	}

	key := fmt.Sprintf("funnel-%s", panel)
	path := []device.PathPoint{{X: x, Y: y, Intensity: intensity}}
	if err := s.session.SubmitPath(key, pos, path, duration); err != nil {
		s.logger.Warn("funnelling activation failed", "error", err)
		return wire.Fail("Failed to activate funnelling effect")
	}

	return wire.OK(wire.Result{
		"panel":       panel,
		"x":           x,
		"y":           y,
		"intensity":   intensity,
		"duration_ms": duration,
	})
}

var glovePositions = map[string]device.Position{
	"left":  device.PositionGloveL,
	"right": device.PositionGloveR,
}

func (s *Server) handleActivateGloveMotor(cmd *wire.Command) wire.Result {
	glove := cmd.Params.StringOr("glove", "")
	pos, ok := glovePositions[glove]
	if !ok {
		return wire.Fail("Glove must be 'left' or 'right'")
	}

	motorIndex, ok := cmd.Params.Int("motor_index")
	if !ok || motorIndex < 0 || motorIndex > 5 {
		return wire.Fail("Motor index must be an integer between 0 and 5")
	}

	intensity, ok := cmd.Params.IntOr("intensity", 100)
	if !ok || intensity < 0 || intensity > 100 {
		return wire.Fail("Intensity must be an integer between 0 and 100")
	}

	duration, ok := cmd.Params.IntOr("duration_ms", 500)
	if !ok || duration <= 0 {
		return wire.Fail("Duration must be a positive integer")
	}

	key := fmt.Sprintf("glove-%s-%d", glove, motorIndex)
	dots := []device.DotPoint{{Index: motorIndex, Intensity: intensity}}
	if err := s.session.SubmitDot(key, pos, dots, duration); err != nil {
		s.logger.Warn("glove activation failed", "error", err)
		return wire.Fail("Failed to activate glove motor")
	}

	return wire.OK(wire.Result{
		"glove":       glove,
		"motor_index": motorIndex,
		"intensity":   intensity,
		"duration_ms": duration,
	})
}

func (s *Server) handlePlayPattern(cmd *wire.Command) wire.Result {
	patternFile, ok := cmd.Params.String("pattern_file")
	if !ok {
		return wire.Fail("Missing pattern_file parameter")
	}

	info, err := pattern.LoadTactInfo(patternFile)
	if err != nil {
		return wire.Fail(fmt.Sprintf("Failed to load pattern file: %v", err))
	}

	key := cmd.Params.StringOr("key", "")
	if key == "" {
		key = info.Name
	}
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(patternFile), filepath.Ext(patternFile))
	}

	if err := s.session.Register(key, patternFile); err != nil {
		return wire.Fail(fmt.Sprintf("Failed to register tact file: %v", err))
	}

	clientID, commandID := cmd.ClientID, cmd.CommandID
	_, err = s.runner.PlayTact(key, info, device.DefaultScale, device.RotationOption{}, func(res pattern.Result) {
		s.logStateChange(log.StateEntityPlayback, "running", res.State.String(), key)
		if res.State == pattern.StateFailed {
			s.sendEvent(wire.EventPatternError, map[string]any{
				"pattern_file": patternFile,
				"key":          key,
				"command_id":   commandID,
				"error":        res.Err.Error(),
			}, clientID)
			return
		}
		s.sendEvent(wire.EventPatternComplete, map[string]any{
			"pattern_file": patternFile,
			"key":          key,
			"command_id":   commandID,
		}, clientID)
	})
	if err != nil {
		return wire.Fail(fmt.Sprintf("Failed to start pattern: %v", err))
	}
	s.logStateChange(log.StateEntityPlayback, "", "running", key)

	return wire.OK(wire.Result{
		"message":      "Pattern playback started",
		"pattern_file": patternFile,
		"key":          key,
	})
}

func (s *Server) handleStopPattern(cmd *wire.Command) wire.Result {
	key, ok := cmd.Params.String("key")
	if ok {
		if s.runner.Stop(key) {
			s.logStateChange(log.StateEntityPlayback, "running", pattern.StateAborted.String(), key)
		}
		if err := s.session.StopKey(key); err != nil {
			return wire.Fail(fmt.Sprintf("Failed to stop pattern: %v", err))
		}
		return wire.OK(wire.Result{"message": "Pattern stopped", "key": key})
	}

	for _, active := range s.runner.Active() {
		s.logStateChange(log.StateEntityPlayback, "running", pattern.StateAborted.String(), active)
	}
	s.runner.StopAll()
	if err := s.session.StopAll(); err != nil {
		return wire.Fail(fmt.Sprintf("Failed to stop patterns: %v", err))
	}
	return wire.OK(wire.Result{"message": "All patterns stopped", "key": nil})
}

func (s *Server) handleIsPatternPlaying(cmd *wire.Command) wire.Result {
	key, ok := cmd.Params.String("key")
	if ok {
		return wire.OK(wire.Result{
			"playing": s.session.IsPlayingKey(key) || s.runner.IsActive(key),
			"key":     key,
		})
	}
	return wire.OK(wire.Result{
		"playing": s.session.IsPlaying() || s.runner.Len() > 0,
		"key":     nil,
	})
}

func (s *Server) handlePlayWavePattern(cmd *wire.Command) wire.Result {
	if result := s.startSteps(cmd, "wave", "wave_pattern", pattern.WaveSequence(), pattern.WaveStepDuration); result != nil {
		return result
	}
	return wire.OK(wire.Result{
		"message":      "Wave pattern playback started",
		"pattern_type": "wave",
	})
}

func (s *Server) handlePlayAlternatingPattern(cmd *wire.Command) wire.Result {
	if result := s.startSteps(cmd, "alternating", "alternating_pattern", pattern.AlternatingSequence(), pattern.AlternatingStepDuration); result != nil {
		return result
	}
	return wire.OK(wire.Result{
		"message":      "Alternating pattern playback started",
		"pattern_type": "alternating",
	})
}

func (s *Server) handlePlayCustomPattern(cmd *wire.Command) wire.Result {
	raw, ok := cmd.Params.List("pattern")
	if !ok {
		return wire.Fail("Missing or invalid pattern parameter")
	}

	duration, ok := cmd.Params.IntOr("duration_ms", 500)
	if !ok || duration <= 0 {
		return wire.Fail("Duration must be a positive integer")
	}

	steps, err := pattern.DecodeSteps(raw)
	if err != nil {
		return wire.Fail(fmt.Sprintf("Invalid pattern: %v", err))
	}

	if result := s.startSteps(cmd, "custom", "custom_pattern", steps, duration); result != nil {
		return result
	}
	return wire.OK(wire.Result{
		"message":     "Custom pattern playback started",
		"steps":       len(steps),
		"duration_ms": duration,
	})
}

// startSteps launches a step sequence task wired to the pattern event
// callbacks. It returns nil on success or a failure result.
func (s *Server) startSteps(cmd *wire.Command, patternType, key string, steps []pattern.Step, stepDuration int) wire.Result {
	clientID, commandID := cmd.ClientID, cmd.CommandID
	_, err := s.runner.PlaySteps(patternType, key, steps, stepDuration, func(res pattern.Result) {
		s.logStateChange(log.StateEntityPlayback, "running", res.State.String(), key)
		if res.State == pattern.StateFailed {
			s.sendEvent(wire.EventPatternError, map[string]any{
				"pattern_type": patternType,
				"command_id":   commandID,
				"error":        res.Err.Error(),
			}, clientID)
			return
		}
		data := map[string]any{
			"pattern_type": patternType,
			"command_id":   commandID,
		}
		if patternType == "custom" {
			data["steps"] = res.Steps
		}
		s.sendEvent(wire.EventPatternComplete, data, clientID)
	})
	if err != nil {
		return wire.Fail(fmt.Sprintf("Failed to start pattern: %v", err))
	}
	s.logStateChange(log.StateEntityPlayback, "", "running", key)
	return nil
}

func (s *Server) handleSubmitDot(cmd *wire.Command) wire.Result {
	key, ok := cmd.Params.String("key")
	if !ok {
		return wire.Fail("Missing key parameter")
	}

	posName, ok := cmd.Params.String("position")
	if !ok {
		return wire.Fail("Missing position parameter")
	}
	pos, err := device.ParsePosition(posName)
	if err != nil {
		return wire.Fail(fmt.Sprintf("Unknown position: %s", posName))
	}

	rawDots, ok := cmd.Params.List("dots")
	if !ok {
		return wire.Fail("Missing or invalid dots parameter")
	}
	dots, err := decodeDots(rawDots)
	if err != nil {
		return wire.Fail("Missing or invalid dots parameter")
	}

	duration, ok := cmd.Params.IntOr("duration_ms", 500)
	if !ok || duration <= 0 {
		return wire.Fail("Duration must be a positive integer")
	}

	if err := s.session.SubmitDot(key, pos, dots, duration); err != nil {
		return wire.Fail(fmt.Sprintf("Failed to submit dot: %v", err))
	}

	return wire.OK(wire.Result{
		"key":         key,
		"position":    posName,
		"dots_count":  len(dots),
		"duration_ms": duration,
	})
}

func (s *Server) handleSubmitPath(cmd *wire.Command) wire.Result {
	key, ok := cmd.Params.String("key")
	if !ok {
		return wire.Fail("Missing key parameter")
	}

	posName, ok := cmd.Params.String("position")
	if !ok {
		return wire.Fail("Missing position parameter")
	}
	pos, err := device.ParsePosition(posName)
	if err != nil {
		return wire.Fail(fmt.Sprintf("Unknown position: %s", posName))
	}

	rawPath, ok := cmd.Params.List("path")
	if !ok {
		return wire.Fail("Missing or invalid path parameter")
	}
	path, err := decodePath(rawPath)
	if err != nil {
		return wire.Fail("Missing or invalid path parameter")
	}

	duration, ok := cmd.Params.IntOr("duration_ms", 500)
	if !ok || duration <= 0 {
		return wire.Fail("Duration must be a positive integer")
	}

	if err := s.session.SubmitPath(key, pos, path, duration); err != nil {
		return wire.Fail(fmt.Sprintf("Failed to submit path: %v", err))
	}

	return wire.OK(wire.Result{
		"key":         key,
		"position":    posName,
		"path_points": len(path),
		"duration_ms": duration,
	})
}

func (s *Server) handleRegisterTactFile(cmd *wire.Command) wire.Result {
	key, ok := cmd.Params.String("key")
	if !ok {
		return wire.Fail("Missing key parameter")
	}
	filePath, ok := cmd.Params.String("file_path")
	if !ok {
		return wire.Fail("Missing file_path parameter")
	}

	if _, err := os.Stat(filePath); err != nil {
		return wire.Fail(fmt.Sprintf("Tact file not found: %s", filePath))
	}

	if err := s.session.Register(key, filePath); err != nil {
		return wire.Fail(fmt.Sprintf("Failed to register tact file: %v", err))
	}

	return wire.OK(wire.Result{"key": key, "file_path": filePath})
}

func (s *Server) handleSubmitRegistered(cmd *wire.Command) wire.Result {
	key, ok := cmd.Params.String("key")
	if !ok {
		return wire.Fail("Missing key parameter")
	}

	scale, ok := cmd.Params.FloatOr("scale", 1.0)
	if !ok {
		return wire.Fail("Scale must be a number")
	}
	rotation, ok := cmd.Params.FloatOr("rotation_option", 0)
	if !ok {
		return wire.Fail("Rotation option must be a number")
	}

	scaleOpt := device.ScaleOption{Intensity: scale, Duration: 1.0}
	rotationOpt := device.RotationOption{OffsetAngleX: rotation}
	if err := s.session.SubmitRegistered(key, scaleOpt, rotationOpt); err != nil {
		return wire.Fail(fmt.Sprintf("Failed to submit registered pattern: %v", err))
	}

	return wire.OK(wire.Result{
		"key":             key,
		"scale":           scale,
		"rotation_option": rotation,
	})
}

// decodeDots converts the wire form of a dot list.
func decodeDots(raw []any) ([]device.DotPoint, error) {
	dots := make([]device.DotPoint, 0, len(raw))
	for i, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dot %d is not an object", i)
		}
		p := wire.Params(obj)
		index, ok := p.Int("index")
		if !ok {
			return nil, fmt.Errorf("dot %d has no index", i)
		}
		intensity, ok := p.IntOr("intensity", 100)
		if !ok {
			return nil, fmt.Errorf("dot %d has an invalid intensity", i)
		}
		dots = append(dots, device.DotPoint{Index: index, Intensity: intensity})
	}
	return dots, nil
}

// decodePath converts the wire form of a path point list.
func decodePath(raw []any) ([]device.PathPoint, error) {
	path := make([]device.PathPoint, 0, len(raw))
	for i, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path point %d is not an object", i)
		}
		p := wire.Params(obj)
		x, ok := p.Float("x")
		if !ok {
			return nil, fmt.Errorf("path point %d has no x", i)
		}
		y, ok := p.Float("y")
		if !ok {
			return nil, fmt.Errorf("path point %d has no y", i)
		}
		intensity, ok := p.IntOr("intensity", 100)
		if !ok {
			return nil, fmt.Errorf("path point %d has an invalid intensity", i)
		}
		path = append(path, device.PathPoint{X: x, Y: y, Intensity: intensity})
	}
	return path, nil
}
