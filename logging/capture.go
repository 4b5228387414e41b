package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes"`
}

// Collector accumulates the records each phase logs so a run can persist
// them next to the phase report. Safe for concurrent use; concurrent
// pipeline steps log through one collector.
type Collector struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{entries: make(map[string][]Entry)}
}

// Logger wraps base so every record it emits is captured under phase while
// still reaching base's handler.
func (c *Collector) Logger(base *slog.Logger, phase string) *slog.Logger {
	return slog.New(&captureHandler{next: base.Handler(), collector: c, phase: phase})
}

// Phase returns a copy of the records captured for phase, in emission order.
func (c *Collector) Phase(phase string) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.entries[phase]
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func (c *Collector) record(phase string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[phase] = append(c.entries[phase], entry)
}

// captureHandler tees records into a Collector before handing them to the
// wrapped handler.
type captureHandler struct {
	next      slog.Handler
	collector *Collector
	phase     string
	attrs     []slog.Attr
}

// Enabled reports true for every level so the artifact keeps debug records
// even when the console handler filters them out. The output-side filter is
// applied in Handle.
func (h *captureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := Entry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, attr := range h.attrs {
		entry.Attributes[attr.Key] = flatten(attr.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attributes[a.Key] = flatten(a.Value)
		return true
	})
	h.collector.record(h.phase, entry)

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs keeps the capture wrapper on the outside; returning the wrapped
// handler's derivative directly would silently stop capturing after a
// logger.With call.
func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &captureHandler{
		next:      h.next.WithAttrs(attrs),
		collector: h.collector,
		phase:     h.phase,
		attrs:     merged,
	}
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{
		next:      h.next.WithGroup(name),
		collector: h.collector,
		phase:     h.phase,
		attrs:     h.attrs,
	}
}

// flatten converts a slog value into something the JSON artifact can
// encode. Errors become their message, groups become nested maps.
func flatten(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := make(map[string]any, len(v.Group()))
		for _, attr := range v.Group() {
			group[attr.Key] = flatten(attr.Value)
		}
		return group
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}
