package logging

import (
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufferPool = buffer.NewPool()

// ScalyrEncoder is a zap encoder that writes one flat Scalyr-compatible JSON object per entry.
// Fields added through With() are kept on the encoder and merged into every entry.
type ScalyrEncoder struct {
	zapcore.Encoder
	config  zapcore.EncoderConfig
	context []zapcore.Field
}

// NewScalyrEncoder creates a new Scalyr-compatible encoder
func NewScalyrEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	return &ScalyrEncoder{
		Encoder: zapcore.NewJSONEncoder(config),
		config:  config,
	}
}

// AddString keeps string context fields such as "component" for later entries.
func (e *ScalyrEncoder) AddString(key, value string) {
	e.context = append(e.context, zapcore.Field{Key: key, Type: zapcore.StringType, String: value})
}

// AddInt64 keeps integer context fields for later entries.
func (e *ScalyrEncoder) AddInt64(key string, value int64) {
	e.context = append(e.context, zapcore.Field{Key: key, Type: zapcore.Int64Type, Integer: value})
}

// AddBool keeps boolean context fields for later entries.
func (e *ScalyrEncoder) AddBool(key string, value bool) {
	var i int64
	if value {
		i = 1
	}
	e.context = append(e.context, zapcore.Field{Key: key, Type: zapcore.BoolType, Integer: i})
}

// EncodeEntry encodes a log entry in Scalyr-compatible format
func (e *ScalyrEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	logObj := map[string]interface{}{
		"timestamp": entry.Time.Format(time.RFC3339Nano),
		"level":     entry.Level.String(),
		"message":   entry.Message,
	}
	if entry.LoggerName != "" {
		logObj["logger"] = entry.LoggerName
	}

	if entry.Caller.Defined {
		logObj["file"] = entry.Caller.File
		logObj["line"] = entry.Caller.Line
		logObj["function"] = entry.Caller.Function
	}

	if entry.Stack != "" {
		logObj["stack"] = entry.Stack
	}

	for _, field := range e.context {
		logObj[field.Key] = fieldValue(field)
	}
	for _, field := range fields {
		logObj[field.Key] = fieldValue(field)
	}

	data, err := json.Marshal(logObj)
	if err != nil {
		return nil, err
	}

	buf := bufferPool.Get()
	buf.AppendBytes(data)
	buf.AppendString(zapcore.DefaultLineEnding)
	return buf, nil
}

func fieldValue(field zapcore.Field) interface{} {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return field.Integer
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return uint64(field.Integer)
	case zapcore.Float64Type, zapcore.Float32Type:
		return field.Interface
	case zapcore.BoolType:
		return field.Integer == 1
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.TimeType:
		if loc, ok := field.Interface.(*time.Location); ok {
			return time.Unix(0, field.Integer).In(loc).Format(time.RFC3339Nano)
		}
		return time.Unix(0, field.Integer).UTC().Format(time.RFC3339Nano)
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok && err != nil {
			return err.Error()
		}
		return nil
	case zapcore.StringerType:
		if s, ok := field.Interface.(interface{ String() string }); ok {
			return s.String()
		}
		return field.Interface
	default:
		return field.Interface
	}
}

// Clone creates a copy of the encoder
func (e *ScalyrEncoder) Clone() zapcore.Encoder {
	ctx := make([]zapcore.Field, len(e.context))
	copy(ctx, e.context)
	return &ScalyrEncoder{
		Encoder: e.Encoder.Clone(),
		config:  e.config,
		context: ctx,
	}
}
