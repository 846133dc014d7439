package log

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorWithTraceID logs msg at error level under a fresh trace id and returns
// it, so the id can be handed back to the caller.
func ErrorWithTraceID(logger *logrus.Logger, fields Fields, msg string) string {
	traceID := "unknown"
	if id, err := uuid.NewRandom(); err == nil {
		traceID = id.String()
	}

	entry := Fields{"trace_id": traceID}
	for k, v := range fields {
		entry[k] = v
	}
	logger.WithFields(entry).Error(msg)

	return traceID
}
