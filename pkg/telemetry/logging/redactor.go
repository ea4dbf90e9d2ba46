package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"rxsentinel/arbiter/pkg/config"
)

// Redactor redacts PHI (Protected Health Information) and other
// sensitive identifiers from log fields. Audit payloads are exempt by
// design; redaction applies only to operational log output.
type Redactor struct {
	patterns map[string]*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Common PHI pattern names.
const (
	PatternSSN         = "ssn"
	PatternEmail       = "email"
	PatternPhone       = "phone"
	PatternDEANumber   = "dea_number"
	PatternDateOfBirth = "date_of_birth"
	PatternMemberID    = "member_id"
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
)

// NewRedactor creates a new Redactor with default and custom patterns.
func NewRedactor(customPatterns []config.RedactPatternConfig) *Redactor {
	r := &Redactor{patterns: make(map[string]*redactPattern)}

	r.addDefaultPatterns()

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			// Validation rejects bad patterns at load time.
			continue
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = "[REDACTED]"
		}
		r.patterns[p.Name] = &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: replacement,
		}
	}

	return r
}

// addDefaultPatterns adds built-in PHI redaction patterns.
func (r *Redactor) addDefaultPatterns() {
	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		// Social Security Numbers
		PatternSSN: {
			regex:       `\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`,
			replacement: "***-**-****",
		},

		// Email addresses
		PatternEmail: {
			regex:       `\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`,
			replacement: "***@***",
		},

		// Phone numbers
		PatternPhone: {
			regex:       `\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`,
			replacement: "***-***-****",
		},

		// DEA registration numbers: two letters and seven digits.
		// The registrant letters stay visible for correlation.
		PatternDEANumber: {
			regex:       `\b([A-Z]{2})\d{7}\b`,
			replacement: "$1*******",
		},

		// Dates of birth in ISO or US order
		PatternDateOfBirth: {
			regex:       `\b(?:19|20)\d{2}-\d{2}-\d{2}\b|\b\d{2}/\d{2}/(?:19|20)\d{2}\b`,
			replacement: "****-**-**",
		},

		// Insurance member IDs announced by their own label
		PatternMemberID: {
			regex:       `(?i)(member[-_\s]?id[:=]\s*)[a-zA-Z0-9-]+`,
			replacement: "$1***",
		},

		// API keys and bearer tokens
		PatternAPIKey: {
			regex:       `(?i)(api[-_]?key[-_:=]\s*)[a-zA-Z0-9-]+`,
			replacement: "$1***",
		},
		PatternBearerToken: {
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}
}

// RedactString redacts PHI from a string value.
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

// RedactAttr redacts one log attribute. Attributes under a sensitive
// key are masked entirely regardless of type; string values elsewhere
// are scrubbed by pattern. Groups are walked recursively and LogValuers
// are resolved first so the mask applies to what would actually print.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		members := v.Group()
		out := make([]slog.Attr, len(members))
		for i, m := range members {
			out[i] = r.RedactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if r.isSensitiveKey(a.Key) {
		return slog.String(a.Key, "***")
	}

	if v.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(v.String()))
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates protected data.
func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"patient_name", "patient_id",
		"dob", "birth_date", "date_of_birth",
		"ssn", "social_security",
		"address", "street",
		"phone", "email",
		"member_id", "insurance",
		"password", "secret", "token", "api_key", "apikey",
		"authorization",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// redactHandler applies the redactor to every record before the sink
// sees it. Sitting in the handler chain rather than on a wrapper type
// means redaction cannot be bypassed by logging through a child logger
// or the slog default.
type redactHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.RedactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.RedactAttr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}
