package api

import (
	"path/filepath"
	"slices"
	"strings"

	"facephrase/internal/jobs"
	"facephrase/internal/stage"
	"facephrase/internal/workflow"
)

// MediaURLPrefix is the route under which data_dir is served.
const MediaURLPrefix = "/media/"

// MediaURL maps an absolute artifact path to its /media URL. Paths outside
// dataDir yield "".
func MediaURL(dataDir, path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	rel, err := filepath.Rel(dataDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return MediaURLPrefix + filepath.ToSlash(rel)
}

// FromJob converts a job record to its API representation.
func FromJob(job *jobs.Job) JobSummary {
	if job == nil {
		return JobSummary{}
	}
	dto := JobSummary{
		ID:           job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		Stage:        workflow.StageLabel(job.Status, job.Progress),
		Script:       job.Script,
		Mode:         job.Mode,
		ErrorMessage: job.ErrorMessage,
		VideoPath:    job.VideoPath,
		PosterPath:   job.PosterPath,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(items []*jobs.Job) []JobSummary {
	if len(items) == 0 {
		return nil
	}
	out := make([]JobSummary, 0, len(items))
	for _, item := range items {
		out = append(out, FromJob(item))
	}
	return out
}

// FromStatusSummary converts a dispatcher summary to its API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	stats := make(map[string]int, len(summary.JobStats))
	for status, count := range summary.JobStats {
		stats[string(status)] = count
	}
	return WorkflowStatus{
		Accepting:   summary.Accepting,
		Slots:       summary.Slots,
		Running:     summary.Running,
		InFlight:    summary.InFlight,
		JobStats:    stats,
		LastError:   summary.LastError,
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
}

// StageHealthSlice orders stage health by pipeline position, then by name for
// anything unknown.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		ia, ib := slices.Index(stage.Order, a), slices.Index(stage.Order, b)
		if ia < 0 {
			ia = len(stage.Order)
		}
		if ib < 0 {
			ib = len(stage.Order)
		}
		if ia != ib {
			return ia - ib
		}
		return strings.Compare(a, b)
	})

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}
