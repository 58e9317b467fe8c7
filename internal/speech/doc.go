// Package speech synthesizes the job script into a mono WAV file.
//
// Two engines are available: a local espeak-ng style command and the
// ElevenLabs HTTP API. The ElevenLabs response is MP3 and is transcoded to WAV
// through the shared media tool. A script without words always yields one
// second of silence so later stages have an audio track to mux.
package speech
