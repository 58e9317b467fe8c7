// Package assembly muxes the animated clip with the synthesized speech, burns
// in captions, overlays the optional watermark and extracts a poster frame.
package assembly
