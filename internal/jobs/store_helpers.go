package jobs

import (
	"database/sql"
	"errors"
	"net/url"
	"time"
)

const jobColumns = "id, status, progress, script, image_path, video_path, poster_path, error_message, mode, created_at, updated_at"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		statusStr    string
		progress     int
		script       string
		imagePath    string
		videoPath    sql.NullString
		posterPath   sql.NullString
		errorMessage sql.NullString
		mode         sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&progress,
		&script,
		&imagePath,
		&videoPath,
		&posterPath,
		&errorMessage,
		&mode,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Status:       Status(statusStr),
		Progress:     progress,
		Script:       script,
		ImagePath:    imagePath,
		VideoPath:    videoPath.String,
		PosterPath:   posterPath.String,
		ErrorMessage: errorMessage.String,
		Mode:         mode.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func redactDSN(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.Host == "" {
		return "postgres"
	}
	return parsed.Redacted()
}
