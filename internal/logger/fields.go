package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the decision backend provider.
	FieldProvider = "backend_provider"
	// FieldModel is the structured log field key for the backend model identifier.
	FieldModel = "backend_model"
	// FieldSize is the structured log field key for the backend size class.
	FieldSize = "backend_size"

	FieldRunID      = "run_id"
	FieldIteration  = "iteration"
	FieldCapability = "capability"
	FieldCandidate  = "student_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a no-op
// logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// BackendFields returns the fields that describe a decision backend.
// Empty values are left out.
func BackendFields(provider, model, size string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
		StringField{Key: FieldSize, Value: size},
	)
}

// WithBackendFields attaches the backend fields to the provided logger.
func WithBackendFields(logger *zap.Logger, provider, model, size string) *zap.Logger {
	return WithFields(logger, BackendFields(provider, model, size)...)
}
