// Package ports holds the narrow seams the Poynt adapter depends on, so the
// gateway can be driven by httptest servers and recording loggers.
package ports

import (
	"net/http"
	"time"
)

// HTTPClient sends a prepared request. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the structured logger the adapter writes to. Field values under
// credential-like keys are redacted by the zap-backed implementation.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key/value pair on a log line
type Field struct {
	Key   string
	Value interface{}
}

func String(key, val string) Field { return Field{Key: key, Value: val} }

func Int(key string, val int) Field { return Field{Key: key, Value: val} }

func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Err logs err under the "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }
