package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts. Reads allow an 8 MB capture over a slow venue uplink.
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Kiosk captures arrive as base64 JSON bodies.
const KioskMaxBodySize = 8 << 20

// Face matching against the event gallery
const (
	FaceCandidateListLength = 1
	DefaultFaceMinScore     = 0.5
)

// Rate limiting window for kiosk endpoints
const KioskRateLimitWindow = time.Minute

// Longest guest chat message accepted, in characters.
const ChatMaxMessageLength = 2000
