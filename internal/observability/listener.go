// File: internal/observability/listener.go
package observability

import (
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event is one step of the provisioning event log as seen by a listener.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Listener receives every log entry at or above its core's level.
// OnEvent is called synchronously from the logging goroutine and must not block.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// listenerCore is a zapcore.Core that forwards entries to a Listener.
type listenerCore struct {
	zapcore.LevelEnabler
	listener Listener
	fields   []zapcore.Field
}

// NewListenerCore returns a core delivering entries at or above level to l.
func NewListenerCore(l Listener, level zapcore.LevelEnabler) zapcore.Core {
	return &listenerCore{LevelEnabler: level, listener: l}
}

func (c *listenerCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &listenerCore{LevelEnabler: c.LevelEnabler, listener: c.listener, fields: merged}
}

func (c *listenerCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *listenerCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	ev := Event{
		Time:    ent.Time,
		Level:   ent.Level.CapitalString(),
		Logger:  ent.LoggerName,
		Message: ent.Message,
	}
	if len(enc.Fields) > 0 {
		ev.Fields = enc.Fields
	}
	c.listener.OnEvent(ev)
	return nil
}

func (c *listenerCore) Sync() error { return nil }

// WithListener returns a logger that writes to everything logger does and
// also delivers each entry at info level or above to l.
func WithListener(logger *zap.Logger, l Listener) *zap.Logger {
	if l == nil {
		return logger
	}
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, NewListenerCore(l, zapcore.InfoLevel))
	}))
}

// JSONLinesListener writes each event as one JSON object per line.
type JSONLinesListener struct {
	mu  sync.Mutex
	enc *jsoniter.Encoder
}

// NewJSONLinesListener returns a listener encoding events onto w.
func NewJSONLinesListener(w io.Writer) *JSONLinesListener {
	return &JSONLinesListener{enc: jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)}
}

func (j *JSONLinesListener) OnEvent(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	// A broken sink must not break the run.
	_ = j.enc.Encode(e)
}
