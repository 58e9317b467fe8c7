package services

import (
	"errors"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrToolExecution = errors.New("tool execution error")
	ErrNotFound      = errors.New("not found")
	ErrNotReady      = errors.New("not ready")
	ErrConfiguration = errors.New("configuration error")
	ErrInternal      = errors.New("internal error")
)

// Kind is the closed set of failure categories surfaced by the pipeline.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindToolExecution Kind = "tool_execution"
	KindNotFound      Kind = "not_found"
	KindNotReady      Kind = "not_ready"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

var kindMarkers = []struct {
	kind   Kind
	marker error
}{
	{KindValidation, ErrValidation},
	{KindToolExecution, ErrToolExecution},
	{KindNotFound, ErrNotFound},
	{KindNotReady, ErrNotReady},
	{KindConfiguration, ErrConfiguration},
	{KindInternal, ErrInternal},
}

// Error carries stage context alongside a kind marker and the underlying cause.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	b.WriteString(buildDetail(e.Stage, e.Operation, e.Message))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrInternal
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// KindOf classifies an error. Unclassified non-nil errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	return KindInternal
}

// Details returns the stage and operation recorded by Wrap, if any.
func Details(err error) (stage, operation string, ok bool) {
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		return "", "", false
	}
	return svcErr.Stage, svcErr.Operation, true
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
