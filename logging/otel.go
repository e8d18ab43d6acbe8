package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
)

// diagPrefix marks log lines originating from the OpenTelemetry SDK's
// internal diagnostics rather than from application code.
const diagPrefix = "[otel] "

// InstallDiagnostics routes the OpenTelemetry SDK's internal diagnostics and
// error handler into the given logger. The SDK speaks logr; diagSink maps its
// verbosity levels onto the logger's five levels.
func InstallDiagnostics(logger Logger) {
	otel.SetLogger(logr.New(&diagSink{logger: logger}))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Error(diagPrefix+"export error", map[string]interface{}{
			"error": err.Error(),
		})
	}))
}

// diagSink adapts the logger to logr.LogSink. The OTel SDK logs verbose
// detail at V(8), informational messages at V(4) and warnings at V(1);
// unleveled V(0) lines are plain info.
type diagSink struct {
	logger Logger
	name   string
	values []interface{}
}

func (s *diagSink) Init(logr.RuntimeInfo) {}

// Enabled always returns true; level filtering belongs to the logger.
func (s *diagSink) Enabled(int) bool { return true }

func (s *diagSink) Info(level int, msg string, keysAndValues ...interface{}) {
	fields := s.fields(keysAndValues)
	switch {
	case level >= 8:
		s.logger.Trace(diagPrefix+msg, fields)
	case level >= 4:
		s.logger.Debug(diagPrefix+msg, fields)
	case level >= 1:
		s.logger.Warn(diagPrefix+msg, fields)
	default:
		s.logger.Info(diagPrefix+msg, fields)
	}
}

func (s *diagSink) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := s.fields(keysAndValues)
	if err != nil {
		fields["error"] = err.Error()
	}
	s.logger.Error(diagPrefix+msg, fields)
}

func (s *diagSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	values := make([]interface{}, 0, len(s.values)+len(keysAndValues))
	values = append(values, s.values...)
	values = append(values, keysAndValues...)
	return &diagSink{logger: s.logger, name: s.name, values: values}
}

func (s *diagSink) WithName(name string) logr.LogSink {
	if s.name != "" {
		name = s.name + "." + name
	}
	return &diagSink{logger: s.logger, name: name, values: s.values}
}

// fields converts logr key/value pairs into logger fields.
func (s *diagSink) fields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, (len(s.values)+len(keysAndValues))/2+1)
	addPairs := func(kv []interface{}) {
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				key = fmt.Sprintf("%v", kv[i])
			}
			fields[key] = kv[i+1]
		}
	}
	addPairs(s.values)
	addPairs(keysAndValues)
	if s.name != "" {
		fields["logger"] = s.name
	}
	return fields
}
