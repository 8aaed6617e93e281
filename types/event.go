package types

import "fmt"

// LogLevel is the severity of an audit event.
type LogLevel uint8

const (
	LevelDebug LogLevel = 1
	LevelInfo  LogLevel = 2
	LevelWarn  LogLevel = 3
	LevelError LogLevel = 4
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(l))
	}
}

// Field is a single key-value attribute of an audit event.
type Field struct {
	Key   string `cramberry:"1"`
	Value string `cramberry:"2"`
}

// F builds a Field, formatting value with %v.
func F(key string, value any) Field {
	if s, ok := value.(string); ok {
		return Field{Key: key, Value: s}
	}
	return Field{Key: key, Value: fmt.Sprint(value)}
}

// LogEvent is an audit record delivered to the log sink.
type LogEvent struct {
	AppID   string    `cramberry:"1"`
	Level   LogLevel  `cramberry:"2"`
	Message string    `cramberry:"3"`
	Time    Timestamp `cramberry:"4"`
	// Correlation id of the request that produced the event.
	RequestID string  `cramberry:"5"`
	Fields    []Field `cramberry:"6"`
}
