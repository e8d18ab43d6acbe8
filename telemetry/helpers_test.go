package telemetry

import (
	"sync"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
	infos    []string
}

func (l *recordingLogger) record(dst *[]string, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, msg)
}

func (l *recordingLogger) Trace(msg string, _ map[string]interface{}) {}
func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) {}
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record(&l.infos, msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record(&l.warnings, msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record(&l.errors, msg) }

func (l *recordingLogger) warningCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings)
}
