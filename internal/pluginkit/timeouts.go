// Package pluginkit holds helpers shared by the command plugins: config
// knobs, store error replies, URL checks and the browse callback routes.
package pluginkit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TimeoutsConfig standardizes the timeout knobs of a plugin. Fields are Go
// duration strings.
//
//	"timeouts": {
//	  "command": "15s",
//	  "operation": "5s"
//	}
//
// Command bounds a whole command run; Operation bounds a single store call
// inside it.
type TimeoutsConfig struct {
	Command   string `json:"command,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// UnmarshalJSON rejects unknown fields to avoid silent misconfiguration.
func (t *TimeoutsConfig) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*t = TimeoutsConfig{}
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out TimeoutsConfig
	for k, v := range m {
		var err error
		switch k {
		case "command":
			err = json.Unmarshal(v, &out.Command)
		case "operation":
			err = json.Unmarshal(v, &out.Operation)
		default:
			return fmt.Errorf("unknown timeouts field %q (supported: command, operation)", k)
		}
		if err != nil {
			return fmt.Errorf("timeouts.%s: %w", k, err)
		}
	}
	*t = out
	return nil
}

// Validate checks non-empty duration strings. fieldPrefix is something like
// "powers.timeouts".
func (t TimeoutsConfig) Validate(fieldPrefix string) error {
	for name, v := range map[string]string{"command": t.Command, "operation": t.Operation} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s.%s: %w", fieldPrefix, name, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s.%s: negative duration", fieldPrefix, name)
		}
	}
	return nil
}

// CommandOr returns the command timeout, or def when unset or invalid.
func (t TimeoutsConfig) CommandOr(def time.Duration) time.Duration { return durOr(t.Command, def) }

// OperationOr returns the per-call timeout, or def when unset or invalid.
func (t TimeoutsConfig) OperationOr(def time.Duration) time.Duration {
	return durOr(t.Operation, def)
}

// WithOperation bounds ctx by the operation timeout (default def).
func (t TimeoutsConfig) WithOperation(ctx context.Context, def time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.OperationOr(def))
}

func durOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
