// Package config loads, normalizes, and validates facephrase configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as FFMPEG_BIN and ELEVENLABS_API_KEY. Environment variables are
// consulted only here; every other package receives the resulting immutable
// Config.
package config
