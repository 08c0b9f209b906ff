package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/vehicle"
)

const (
	FieldProvider     = "ai_provider"
	FieldModel        = "ai_model"
	FieldVehicleID    = "vehicle_id"
	FieldVehicleModel = "vehicle_model"
	FieldSessionID    = "session_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace and
// dropping entries whose key or value is empty.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to log. A nil log becomes a no-op logger.
func WithFields(log *zap.Logger, fields ...zap.Field) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// ProviderFields describes the remote scorer behind a log entry.
func ProviderFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithProvider(log *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(log, ProviderFields(provider, model)...)
}

// VehicleFields describes v for log entries. A nil vehicle yields no fields.
func VehicleFields(v *vehicle.Vehicle) []zap.Field {
	if v == nil {
		return nil
	}
	return StringFields(
		StringField{Key: FieldVehicleID, Value: v.ID},
		StringField{Key: FieldVehicleModel, Value: v.Model},
	)
}
