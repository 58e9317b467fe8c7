package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// GenericFailure is the client-facing error text for failed jobs.
const GenericFailure = "video generation failed"

// SubmitRequest describes a new job. ID is optional; the HTTP layer sets it
// so the upload can be stored under the job's directory before submission.
type SubmitRequest struct {
	ID        string
	Script    string
	ImagePath string
	Mode      string
}

// SubmitResponse is returned by POST /api/generate.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// StatusView is returned by GET /api/status.
type StatusView struct {
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	ETASeconds int    `json:"etaSeconds"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error,omitempty"`
	// Detail is the raw error message kept for logs and the CLI.
	Detail string `json:"-"`
}

// ResultView is returned by GET /api/result.
type ResultView struct {
	VideoURL    string `json:"videoUrl"`
	PosterURL   string `json:"posterUrl"`
	DurationSec int    `json:"durationSec"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// JobSummary describes a job in listings.
type JobSummary struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Stage        string `json:"stage,omitempty"`
	Script       string `json:"script"`
	Mode         string `json:"mode"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	VideoPath    string `json:"videoPath,omitempty"`
	PosterPath   string `json:"posterPath,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// ErrorResponse is the body of every non-2xx HTTP response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WorkflowStatus summarizes dispatcher state.
type WorkflowStatus struct {
	Accepting   bool           `json:"accepting"`
	Slots       int            `json:"slots"`
	Running     int            `json:"running"`
	InFlight    int            `json:"inFlight"`
	JobStats    map[string]int `json:"jobStats"`
	LastError   string         `json:"lastError,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StoreDriver  string             `json:"storeDriver"`
	StorePath    string             `json:"storePath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}
