// scrubber.go implements fail-closed sensitive data redaction for notices.

package brake

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveKeys contains additional case-insensitive substrings that mark
	// a var key as sensitive.
	SensitiveKeys []string

	// MaxMessageSize is the maximum length for error messages (default: 4096).
	MaxMessageSize int

	// MaxVarValueSize is the maximum length of a single var value (default: 1024).
	MaxVarValueSize int

	// MaxBacktraceLines caps the number of backtrace lines (default: 256).
	MaxBacktraceLines int

	// ScrubMessages enables scrubbing of messages and URLs for secrets/PII (default: true).
	ScrubMessages bool

	// NormalizePaths strips user-specific directories from backtrace files (default: true).
	NormalizePaths bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:    4096,
		MaxVarValueSize:   1024,
		MaxBacktraceLines: 256,
		ScrubMessages:     true,
		NormalizePaths:    true,
	}
}

const redacted = "[REDACTED]"

// Compiled regex patterns for message scrubbing (compiled once at package init)
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`), // Authorization: Bearer <token>
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),                                 // OpenAI-style keys
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),                                   // GitHub tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),                          // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),                         // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT tokens

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"&,]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"&,]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'"&,]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                               // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),         // Credit card
}

// Sensitive var key patterns (case-insensitive substring match)
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
	"cookie",
}

// Path patterns to normalize in backtraces
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/home/[^/]+/`),
	regexp.MustCompile(`^/Users/[^/]+/`),
	regexp.MustCompile(`^C:\\Users\\[^\\]+\\`),
}

// Scrubber redacts sensitive data from notices.
type Scrubber struct {
	cfg ScrubberConfig
}

// NewScrubber creates a new scrubber with the given configuration.
// Zero size limits fall back to DefaultScrubberConfig values.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	def := DefaultScrubberConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.MaxVarValueSize <= 0 {
		cfg.MaxVarValueSize = def.MaxVarValueSize
	}
	if cfg.MaxBacktraceLines <= 0 {
		cfg.MaxBacktraceLines = def.MaxBacktraceLines
	}
	return &Scrubber{cfg: cfg}
}

// ScrubNotice redacts the notice in place.
func (s *Scrubber) ScrubNotice(n *Notice) {
	if n == nil {
		return
	}
	n.Error.Message = s.ScrubMessage(n.Error.Message)
	n.Error.Backtrace = s.ScrubBacktrace(n.Error.Backtrace)

	if n.Request != nil {
		n.Request.URL = s.ScrubMessage(n.Request.URL)
		n.Request.Params = s.ScrubVars(n.Request.Params)
		n.Request.Session = s.ScrubVars(n.Request.Session)
		n.Request.CgiData = s.ScrubVars(n.Request.CgiData)
	}
}

// ScrubMessage scrubs sensitive patterns from a message.
func (s *Scrubber) ScrubMessage(msg string) string {
	if len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}
	if !s.cfg.ScrubMessages {
		return msg
	}

	result := msg
	for _, pattern := range messageScrubPatterns {
		result = pattern.ReplaceAllString(result, redacted)
	}
	return result
}

// ScrubVars redacts values of sensitive keys and truncates long values.
func (s *Scrubber) ScrubVars(vars []Var) []Var {
	if vars == nil {
		return nil
	}

	result := make([]Var, len(vars))
	for i, v := range vars {
		switch {
		case s.isSensitiveKey(v.Key):
			v.Value = redacted
		case len(v.Value) > s.cfg.MaxVarValueSize:
			v.Value = truncateWithMarker(v.Value, s.cfg.MaxVarValueSize)
		}
		result[i] = v
	}
	return result
}

// ScrubBacktrace normalizes user-specific paths and caps the line count.
func (s *Scrubber) ScrubBacktrace(lines []TraceLine) []TraceLine {
	if len(lines) > s.cfg.MaxBacktraceLines {
		lines = lines[:s.cfg.MaxBacktraceLines]
	}
	if !s.cfg.NormalizePaths {
		return lines
	}

	result := make([]TraceLine, len(lines))
	for i, line := range lines {
		for _, pattern := range pathNormalizationPatterns {
			line.File = pattern.ReplaceAllString(line.File, "[PATH]/")
		}
		result[i] = line
	}
	return result
}

// isSensitiveKey checks if a var key matches sensitive patterns.
func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, pattern := range s.cfg.SensitiveKeys {
		if pattern != "" && strings.Contains(keyLower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// truncateWithMarker truncates a string on a rune boundary and adds a
// truncation marker. The result is at most maxLen bytes.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	cut := maxLen - len(marker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + marker
}
