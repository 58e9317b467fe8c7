package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"facephrase/internal/media"
)

// Call records one process invocation seen by FakeRunner.
type Call struct {
	Name string
	Args []string
}

// Tool returns the base name of the invoked binary.
func (c Call) Tool() string {
	return filepath.Base(c.Name)
}

// Joined returns the arguments separated by spaces.
func (c Call) Joined() string {
	return strings.Join(c.Args, " ")
}

// Has reports whether arg appears verbatim among the arguments.
func (c Call) Has(arg string) bool {
	return slices.Contains(c.Args, arg)
}

// After returns the argument following flag, if any.
func (c Call) After(flag string) (string, bool) {
	idx := slices.Index(c.Args, flag)
	if idx < 0 || idx+1 >= len(c.Args) {
		return "", false
	}
	return c.Args[idx+1], true
}

// FakeRunner stands in for ffmpeg, ffprobe and speech engines. Transcoder and
// speech invocations write a small placeholder to their output path; ffprobe
// invocations answer from Durations.
type FakeRunner struct {
	mu    sync.Mutex
	calls []Call

	// Durations maps a probed path to the duration ffprobe reports. Paths not
	// present report DefaultDuration.
	Durations       map[string]float64
	DefaultDuration float64
	// ProbeFails makes every ffprobe call exit non-zero.
	ProbeFails bool
	// FailWhen makes matching calls exit 1 with the returned stderr.
	FailWhen func(call Call) (stderr string, fail bool)
	// OnRun, when set, is invoked before the call is simulated.
	OnRun func(call Call)
}

// NewFakeRunner returns a runner whose probes report defaultDuration seconds.
func NewFakeRunner(defaultDuration float64) *FakeRunner {
	return &FakeRunner{Durations: map[string]float64{}, DefaultDuration: defaultDuration}
}

// Run implements media.Runner.
func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (media.Result, error) {
	call := Call{Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	onRun := f.OnRun
	failWhen := f.FailWhen
	f.mu.Unlock()

	if onRun != nil {
		onRun(call)
	}
	if failWhen != nil {
		if stderr, fail := failWhen(call); fail {
			return media.Result{Stderr: stderr, ExitCode: 1}, fmt.Errorf("exit status 1")
		}
	}

	if strings.Contains(call.Tool(), "ffprobe") {
		return f.probe(call)
	}

	output := ""
	if value, ok := call.After("-w"); ok {
		output = value
	} else if len(args) > 0 {
		output = args[len(args)-1]
	}
	if output != "" && !strings.HasPrefix(output, "-") {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return media.Result{Stderr: err.Error(), ExitCode: 1}, err
		}
		if err := os.WriteFile(output, []byte("fake "+call.Tool()+" output\n"), 0o644); err != nil {
			return media.Result{Stderr: err.Error(), ExitCode: 1}, err
		}
	}
	return media.Result{}, nil
}

func (f *FakeRunner) probe(call Call) (media.Result, error) {
	if f.ProbeFails || len(call.Args) == 0 {
		return media.Result{Stderr: "probe failed", ExitCode: 1}, fmt.Errorf("exit status 1")
	}
	path := call.Args[len(call.Args)-1]
	f.mu.Lock()
	duration, ok := f.Durations[path]
	if !ok {
		duration = f.DefaultDuration
	}
	f.mu.Unlock()

	formatted := strconv.FormatFloat(duration, 'f', 6, 64)
	if call.Has("json") {
		return media.Result{Stdout: fmt.Sprintf(
			`{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":1080,"height":1920},{"index":1,"codec_type":"audio","codec_name":"aac","channels":1}],"format":{"filename":%q,"duration":%q,"nb_streams":2}}`,
			path, formatted,
		)}, nil
	}
	return media.Result{Stdout: formatted + "\n"}, nil
}

// Calls returns a snapshot of recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns recorded invocations whose binary base name contains tool.
func (f *FakeRunner) CallsTo(tool string) []Call {
	var out []Call
	for _, call := range f.Calls() {
		if strings.Contains(call.Tool(), tool) {
			out = append(out, call)
		}
	}
	return out
}
