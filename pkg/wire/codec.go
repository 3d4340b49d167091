package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DecodeCommand parses a command datagram and applies the generation
// defaults: a missing command_id becomes a fresh UUID and a missing
// client_id becomes the source address in "host:port" form.
//
// A JSON syntax error is returned as-is so the dispatcher can answer with
// an uncorrelated error envelope.
func DecodeCommand(data []byte, source string) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	if cmd.Command == "" {
		return nil, fmt.Errorf("no command specified")
	}
	if cmd.CommandID == "" {
		cmd.CommandID = uuid.New().String()
	}
	if cmd.ClientID == "" {
		cmd.ClientID = source
	}
	if cmd.Params == nil {
		cmd.Params = Params{}
	}
	return &cmd, nil
}

// EncodeCommand encodes a command envelope for transmission.
func EncodeCommand(cmd *Command) ([]byte, error) {
	return json.Marshal(cmd)
}

// EncodeResponse wraps a handler result into a response envelope.
func EncodeResponse(commandID string, result Result, now time.Time) ([]byte, error) {
	return json.Marshal(Response{
		Type:      TypeResponse,
		CommandID: commandID,
		Timestamp: Timestamp(now),
		Result:    result,
	})
}

// EncodeError builds an error envelope. Pass an empty commandID when the
// failing datagram could not be parsed.
func EncodeError(commandID, message string, now time.Time) ([]byte, error) {
	return json.Marshal(ErrorResponse{
		Type:      TypeError,
		CommandID: commandID,
		Error:     message,
		Timestamp: Timestamp(now),
	})
}

// EncodeEvent builds an event push envelope.
func EncodeEvent(eventType string, data map[string]any, now time.Time) ([]byte, error) {
	return json.Marshal(Event{
		Type:      TypeEvent,
		EventType: eventType,
		Timestamp: Timestamp(now),
		Data:      data,
	})
}

// EncodeStatusUpdate builds a status broadcast envelope.
func EncodeStatusUpdate(status map[string]any, now time.Time) ([]byte, error) {
	return json.Marshal(StatusUpdate{
		Type:      TypeStatusUpdate,
		Status:    status,
		Timestamp: Timestamp(now),
	})
}

// EncodeDiscoveryResponse builds the reply to a discovery probe.
func EncodeDiscoveryResponse(marker, serverID string, apiPort int, apiVersion string, now time.Time) ([]byte, error) {
	return json.Marshal(DiscoveryResponse{
		Type:       marker,
		ServerID:   serverID,
		APIPort:    apiPort,
		APIVersion: apiVersion,
		Timestamp:  Timestamp(now),
	})
}

// PeekType inspects a server-originated datagram and returns its "type"
// field without decoding the full message. Clients use this to route
// responses, events and status pushes received on one socket.
func PeekType(data []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}
