package commands

import "fmt"

// ValidationError reports a command envelope or payload that does not have
// the required shape.
type ValidationError struct {
	Command string `json:"command"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason"`
}

func (e *ValidationError) Error() string {
	switch {
	case e.Command == "":
		return fmt.Sprintf("invalid command: %s", e.Reason)
	case e.Field == "":
		return fmt.Sprintf("invalid %s command: %s", e.Command, e.Reason)
	default:
		return fmt.Sprintf("invalid %s command: %s: %s", e.Command, e.Field, e.Reason)
	}
}

func invalid(command, field, reason string) *ValidationError {
	return &ValidationError{Command: command, Field: field, Reason: reason}
}
