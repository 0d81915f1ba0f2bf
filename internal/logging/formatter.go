package logging

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrz1836/go-cligolden/internal/jsonutil"
)

// StructuredFormatter writes one JSON object per entry
type StructuredFormatter struct {
	DisableTimestamp bool
	TimestampFormat  string // Default: time.RFC3339
}

// NewStructuredFormatter returns a formatter with RFC 3339 timestamps
func NewStructuredFormatter() *StructuredFormatter {
	return &StructuredFormatter{TimestampFormat: time.RFC3339}
}

// Format implements logrus.Formatter. Errors become their message, durations their
// String form, and the caller is added when the logger reports it.
func (f *StructuredFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(logrus.Fields, len(entry.Data)+4)
	for k, v := range entry.Data {
		data[k] = jsonValue(v)
	}

	data["level"] = entry.Level.String()
	data["message"] = entry.Message

	if !f.DisableTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = time.RFC3339
		}
		data[StandardFields.Timestamp] = entry.Time.Format(layout)
	}
	if entry.HasCaller() {
		data["caller"] = fmt.Sprintf("%s:%d", entry.Caller.File, entry.Caller.Line)
	}

	return jsonutil.Line(data)
}

func jsonValue(v interface{}) interface{} {
	switch value := v.(type) {
	case error:
		return value.Error()
	case time.Duration:
		return value.String()
	case []byte:
		return string(value)
	default:
		return v
	}
}
