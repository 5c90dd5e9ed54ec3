package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log values.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor for API keys and bearer tokens.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			{
				regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				regex:       regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{20,}`),
				replacement: "sk-***",
			},
		},
	}
}

// RedactString masks credentials in a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// isSensitiveKey checks if an attribute key names a secret.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	for _, sensitive := range []string{"api_key", "apikey", "authorization", "credential", "secret", "token"} {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// redactAttr returns a with secrets masked. Groups are walked recursively.
func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	value := a.Value.Resolve()

	switch value.Kind() {
	case slog.KindGroup:
		attrs := value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = r.redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}

	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, KeyPrefix(value.String()))
		}
		return slog.String(a.Key, r.RedactString(value.String()))

	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}

	return slog.Attr{Key: a.Key, Value: value}
}

// RedactingHandler is a slog.Handler that masks secrets before delegating.
type RedactingHandler struct {
	next     slog.Handler
	redactor *Redactor
}

// NewRedactingHandler wraps next.
func NewRedactingHandler(next slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{next: next, redactor: redactor}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	redacted := slog.NewRecord(record.Time, record.Level, h.redactor.RedactString(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactor.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, redacted)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}

// KeyPrefix returns a loggable identifier for a credential: at most the first
// ten characters, never more than half the key, followed by "...".
func KeyPrefix(credential string) string {
	n := len(credential) / 2
	if n > 10 {
		n = 10
	}
	return credential[:n] + "..."
}
