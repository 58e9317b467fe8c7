package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusAssembling Status = "assembling"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// MaxScriptLength bounds the script in runes.
const MaxScriptLength = 200

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusAssembling,
	StatusReady,
	StatusError,
}

// predecessors lists, per target status, the states an update may start from.
// Self edges on processing and assembling are progress checkpoints.
var predecessors = map[Status][]Status{
	StatusProcessing: {StatusQueued, StatusProcessing},
	StatusAssembling: {StatusProcessing, StatusAssembling},
	StatusReady:      {StatusAssembling},
	StatusError:      {StatusProcessing, StatusAssembling},
}

// AllStatuses returns every lifecycle status in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user-provided string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

// IsActive reports whether the job is waiting for or occupying a runner slot.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusProcessing || s == StatusAssembling
}

// CanTransition reports whether a job in from may be updated to to.
func CanTransition(from, to Status) bool {
	for _, allowed := range predecessors[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

// Job is one generation request and its lifecycle state.
type Job struct {
	ID           string
	Status       Status
	Progress     int
	Script       string
	ImagePath    string
	VideoPath    string
	PosterPath   string
	ErrorMessage string
	Mode         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewJob carries the fields supplied at submission time.
type NewJob struct {
	ID        string
	ImagePath string
	Script    string
	Mode      string
}

// Patch lists the optional fields an UpdateStatus call sets alongside status
// and progress. Nil fields are left untouched.
type Patch struct {
	VideoPath    *string
	PosterPath   *string
	ErrorMessage *string
}

// Completed returns the patch recorded when a job becomes ready.
func Completed(videoPath, posterPath string) Patch {
	return Patch{VideoPath: &videoPath, PosterPath: &posterPath}
}

// Failed returns the patch recorded when a job errors.
func Failed(message string) Patch {
	return Patch{ErrorMessage: &message}
}

// IsEmpty reports whether the patch sets no fields.
func (p Patch) IsEmpty() bool {
	return p.VideoPath == nil && p.PosterPath == nil && p.ErrorMessage == nil
}

func validateUpdate(status Status, progress int) error {
	if _, ok := predecessors[status]; !ok {
		return fmt.Errorf("%w: %q is not a valid update target", ErrInvalidTransition, status)
	}
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range 0-100", progress)
	}
	return nil
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	Driver        string
	Location      string
	Reachable     bool
	SchemaVersion int
	TotalJobs     int
	IntegrityOK   bool
	Error         string
}
