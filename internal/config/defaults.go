// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// BACKEND
// =============================================================================

// DefaultBackendBaseURL is where the answer backend listens when BACKEND_BASE is unset.
const DefaultBackendBaseURL = "http://127.0.0.1:8000"

// APIPrefix is the path namespace served by the gateway and mirrored on the backend.
const APIPrefix = "/api"

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultGatewayPort is the port the gateway binds when none is configured.
const DefaultGatewayPort = 5000

// DefaultDialTimeout is the TCP dial timeout for backend connections.
// Forwarded calls have no overall deadline; a hung backend hangs the caller.
const DefaultDialTimeout = 30 * time.Second

// DefaultServerReadHeaderTimeout bounds reading request headers. Bodies are
// not bounded, so slow uploads keep streaming.
const DefaultServerReadHeaderTimeout = 30 * time.Second

// DefaultShutdownTimeout is how long in-flight requests get on SIGTERM.
const DefaultShutdownTimeout = 10 * time.Second

// MaxJSONBodySize is the maximum accepted JSON request body (1MB).
const MaxJSONBodySize = 1 * 1024 * 1024

// MaxResponseSize is the maximum read from a backend response body (50MB).
const MaxResponseSize = 50 * 1024 * 1024

// MaxErrorBodyLogLen limits error response body in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// =============================================================================
// UPLOADS
// =============================================================================

// DefaultUploadRequireAuth applies the same bearer requirement to both upload paths.
const DefaultUploadRequireAuth = true

// =============================================================================
// LOGGING
// =============================================================================

// DefaultLogLevel is the zerolog level when none is configured.
const DefaultLogLevel = "info"

// DefaultLogFormat is "console" for humans; "json" for collectors.
const DefaultLogFormat = "console"

// DefaultLogOutput is stdout unless a file path is configured.
const DefaultLogOutput = "stdout"
