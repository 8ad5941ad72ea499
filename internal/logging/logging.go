// Package logging provides the compact console log handler.
package logging

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// TextHandler is a slog.Handler writing compact "time LEVEL message k=v" lines.
type TextHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler

	attrs  []slog.Attr
	prefix string
}

// NewTextHandler returns a TextHandler writing records at or above level to out.
func NewTextHandler(out io.Writer, level slog.Leveler) *TextHandler {
	if level == nil {
		level = slog.LevelInfo
	}

	return &TextHandler{
		mu:    &sync.Mutex{},
		w:     out,
		level: level,
	}
}

// Setup installs a TextHandler as the default logger.
func Setup(out io.Writer, level slog.Leveler) {
	slog.SetDefault(slog.New(NewTextHandler(out, level)))
}

// Enabled reports whether the handler handles records at the given level.
func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	clone := *h
	clone.attrs = slices.Clip(h.attrs)

	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		clone.attrs = append(clone.attrs, a)
	}

	return &clone
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.prefix = h.prefix + name + "."

	return &clone
}

// Handle handles the Record.
func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	// Build up the base line with timestamp, log level, and message.
	if !r.Time.IsZero() {
		buf.WriteString(r.Time.Format(time.DateTime) + " ")
	}

	buf.WriteString(r.Level.String() + " ")
	buf.WriteString(r.Message)

	// Get the attributes for this record.
	attrs := make(map[string]string, len(h.attrs)+r.NumAttrs())

	for _, a := range h.attrs {
		addAttr(attrs, "", a)
	}

	r.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, h.prefix, a)

		return true
	})

	// Sort the keys so we have a consistent output.
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		buf.WriteString(" " + k + "=" + attrs[k])
	}

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.w, buf.String())

	return err
}

func addAttr(attrs map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			addAttr(attrs, group, ga)
		}

		return
	}

	value := a.Value.String()
	if strings.ContainsAny(value, " \t\"=") {
		value = `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}

	attrs[prefix+a.Key] = value
}
