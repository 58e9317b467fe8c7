// Package captions writes the single-cue SRT burned into the final video and
// estimates how long the spoken script runs.
package captions
