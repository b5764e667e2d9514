package server

import "time"

// Config is the web server configuration.
type Config struct {
	// Address to listen on (e.g., "0.0.0.0:7860")
	ListenAddr string

	// SessionTTL expires sessions that have been idle this long.
	SessionTTL time.Duration

	// TurnsPerMinute caps completions across all sessions. Zero disables the cap.
	TurnsPerMinute int

	// BodyLimit bounds request bodies in bytes, attachments included.
	BodyLimit int
}

const (
	defaultSessionTTL = 24 * time.Hour
	defaultBodyLimit  = 20 * 1024 * 1024
)
