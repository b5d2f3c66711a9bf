package log

import (
	"fmt"
	"sync"
	"time"
)

// HTTP log buffer is separate from the main log buffer
var httpLogBuffer *LogBuffer
var httpLogBufferOnce sync.Once

// GetHTTPLogBuffer returns the HTTP log buffer instance, creating it if necessary
func GetHTTPLogBuffer() *LogBuffer {
	httpLogBufferOnce.Do(func() {
		httpLogBuffer = NewLogBuffer(1000) // Keep last 1000 HTTP log entries
	})
	return httpLogBuffer
}

// LogHTTPRequest logs an HTTP request to the separate HTTP log buffer.
// label identifies the logical endpoint group (e.g. "pipeline-runs").
func LogHTTPRequest(method, path string, status int, duration time.Duration, size int, remoteAddr, userAgent, label string, err error) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   fmt.Sprintf("%s %s %d %v %d bytes", method, path, status, duration, size),
		Fields: map[string]any{
			"method":      method,
			"path":        path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"size":        size,
			"remote_addr": remoteAddr,
			"user_agent":  userAgent,
		},
	}

	if label != "" {
		entry.Fields["label"] = label
	}

	if err != nil {
		entry.Level = "error"
		entry.Fields["error"] = err.Error()
	}

	// Add to HTTP log buffer
	httpLogBuffer := GetHTTPLogBuffer()
	httpLogBuffer.AddEntry(entry)
}