// Package report abstracts diagnostics and user-facing notices.
package report

import (
	"sync"

	"go.uber.org/zap"
)

// Reporter receives diagnostics and messages meant for the user
type Reporter interface {
	LogDiagnostic(msg string, err error)
	NotifyUser(msg string)
}

// ZapReporter logs diagnostics through zap and drops user notices into the log too
type ZapReporter struct {
	L *zap.Logger
}

// LogDiagnostic logs msg at error level
func (r ZapReporter) LogDiagnostic(msg string, err error) {
	r.L.Error(msg, zap.Error(err))
}

// NotifyUser logs msg at warn level
func (r ZapReporter) NotifyUser(msg string) {
	r.L.Warn("user_notice", zap.String("message", msg))
}

// Recorder keeps everything it receives
type Recorder struct {
	mu          sync.Mutex
	Diagnostics []string
	Notices     []string
}

// LogDiagnostic records msg and the error text
func (r *Recorder) LogDiagnostic(msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	r.Diagnostics = append(r.Diagnostics, msg)
}

// NotifyUser records msg
func (r *Recorder) NotifyUser(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, msg)
}
