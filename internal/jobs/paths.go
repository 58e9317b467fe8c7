package jobs

import (
	"path/filepath"
	"strings"
)

// Artifact names the files a pipeline run produces inside the job directory.
type Artifact string

const (
	ArtifactAudio    Artifact = "audio.wav"
	ArtifactCaptions Artifact = "captions.srt"
	ArtifactTalking  Artifact = "talking.mp4"
	ArtifactVideo    Artifact = "final.mp4"
	ArtifactPoster   Artifact = "poster.jpg"
)

// Artifacts holds the resolved per-job output paths.
type Artifacts struct {
	Dir      string
	Audio    string
	Captions string
	Talking  string
	Video    string
	Poster   string
}

// JobDir returns the output directory for a job.
func JobDir(outputsDir, id string) string {
	return filepath.Join(outputsDir, id)
}

// ArtifactPath returns the deterministic location of one artifact.
func ArtifactPath(outputsDir, id string, artifact Artifact) string {
	return filepath.Join(JobDir(outputsDir, id), string(artifact))
}

// ArtifactsFor resolves every artifact path for a job.
func ArtifactsFor(outputsDir, id string) Artifacts {
	return Artifacts{
		Dir:      JobDir(outputsDir, id),
		Audio:    ArtifactPath(outputsDir, id, ArtifactAudio),
		Captions: ArtifactPath(outputsDir, id, ArtifactCaptions),
		Talking:  ArtifactPath(outputsDir, id, ArtifactTalking),
		Video:    ArtifactPath(outputsDir, id, ArtifactVideo),
		Poster:   ArtifactPath(outputsDir, id, ArtifactPoster),
	}
}

// UploadPath returns where the submitted photo for a job is stored. ext
// includes the leading dot.
func UploadPath(uploadsDir, id, ext string) string {
	return filepath.Join(uploadsDir, id, "selfie"+strings.ToLower(ext))
}
