// internal/common/logger/testing.go
package logger

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

// NewTestLogger creates a Logger that writes through testing.TB, so log
// output shows up attached to the failing test.
func NewTestLogger(t testing.TB) Logger {
	return &zapWrapper{l: zaptest.NewLogger(t)}
}
