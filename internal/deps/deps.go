package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"facephrase/internal/config"
)

// Requirement defines an external binary facephrase relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Resolved is the absolute path found on PATH, when available.
	Resolved string
	Detail   string
}

// Requirements lists the binaries the pipeline invokes for the given config.
// espeak-ng is only mandatory when no ElevenLabs key can take over speech.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpegBinary,
			Description: "Required for animation, assembly and silent audio",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Media.FFprobeBinary,
			Description: "Required for duration probing and result inspection",
		},
	}
	switch cfg.Speech.Engine {
	case config.SpeechEngineElevenLabs:
	case config.SpeechEngineEspeak:
		reqs = append(reqs, Requirement{
			Name:        "espeak-ng",
			Command:     cfg.Speech.Command,
			Description: "Required for speech synthesis",
		})
	default:
		reqs = append(reqs, Requirement{
			Name:        "espeak-ng",
			Command:     cfg.Speech.Command,
			Description: "Speech synthesis when no ElevenLabs key is configured",
			Optional:    strings.TrimSpace(cfg.Speech.ElevenLabsAPIKey) != "",
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Resolved = resolved
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
