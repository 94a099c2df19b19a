package domain

import (
	"errors"
	"fmt"
)

// ErrLabelNotFound is returned by mutation ports when asked to remove a label
// the issue does not carry.
var ErrLabelNotFound = errors.New("label not present on issue")

// ConfigurationError aborts a run before any issue is processed.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func NewConfigurationError(reason string, err error) error {
	return &ConfigurationError{Reason: reason, Err: err}
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

type AnalysisError struct {
	IssueID string
	Err     error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed for issue %s: %v", e.IssueID, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

type MutationError struct {
	IssueID string
	Op      string
	Err     error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed for issue %s: %v", e.Op, e.IssueID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
