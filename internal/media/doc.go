// Package media wraps the external ffmpeg and ffprobe binaries.
//
// Transcode and ProbeDuration deliberately differ on failure: a transcode that
// exits non-zero is fatal to the caller and surfaces a *ToolError with the
// captured stderr, while a probe that cannot produce a duration degrades to 0.
// Process execution goes through the Runner interface so stage packages can be
// exercised with a fake in tests.
package media
