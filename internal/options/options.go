// Package options decodes the per-page JSON options blob and resolves the
// destination credential it points at.
package options

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingKey is returned when a required option is absent or empty.
var ErrMissingKey = errors.New("missing option")

// Options is the decoded custom JSON argument.
type Options map[string]any

// Decode parses the options blob. The top-level value must be a JSON object.
func Decode(raw string) (Options, error) {
	var opts Options
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return nil, fmt.Errorf("failed to decode options JSON: %w", err)
	}
	if opts == nil {
		return nil, fmt.Errorf("failed to decode options JSON: expected an object")
	}
	return opts, nil
}

// String returns the string option stored under key.
func (o Options) String(key string) (string, error) {
	v, ok := o[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %s must be a string, got %T", key, v)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingKey, key)
	}
	return s, nil
}

// Lookup returns the option under key, or "" when it is absent or not a string.
func (o Options) Lookup(key string) string {
	s, _ := o[key].(string)
	return s
}
