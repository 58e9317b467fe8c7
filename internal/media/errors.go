package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"facephrase/internal/services"
)

// maxStderrInMessage bounds how much stderr Error() repeats; Stderr keeps everything.
const maxStderrInMessage = 2000

// ToolError reports a failed external tool invocation. It matches
// services.ErrToolExecution.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	name := filepath.Base(e.Tool)
	var head string
	if e.ExitCode >= 0 {
		head = fmt.Sprintf("%s exited with status %d", name, e.ExitCode)
	} else {
		head = fmt.Sprintf("%s could not be started", name)
		if e.Err != nil {
			head += ": " + e.Err.Error()
		}
	}
	stderr := e.Stderr
	if stderr == "" {
		return head
	}
	if len(stderr) > maxStderrInMessage {
		cut := len(stderr) - maxStderrInMessage
		for cut < len(stderr) && !utf8.RuneStart(stderr[cut]) {
			cut++
		}
		stderr = "..." + stderr[cut:]
	}
	return head + ": " + stderr
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrToolExecution}
	}
	return []error{services.ErrToolExecution, e.Err}
}

// CommandLine renders the invocation for diagnostics.
func (e *ToolError) CommandLine() string {
	return strings.TrimSpace(e.Tool + " " + strings.Join(e.Args, " "))
}
