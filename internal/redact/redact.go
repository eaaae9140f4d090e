// Package redact masks likely credentials in artifact text before it is
// sent to external reviewers.
package redact

import "regexp"

const placeholder = "***MASKED***"

// DefaultKeys lists the key names whose assigned values are masked.
var DefaultKeys = []string{
	"password", "api_key", "secret", "token", "credential",
	"private_key", "access_key", "auth_token",
}

// wellKnown are shape-based heuristics that need no key context.
var wellKnown = []*regexp.Regexp{
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	// OpenAI API keys
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
}

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Masker replaces assignment values of sensitive keys and well-known token
// shapes with a fixed placeholder. The zero key set is not useful; build
// instances through NewMasker.
type Masker struct {
	rules []rule
}

// NewMasker compiles masking rules for the given sensitive key names.
// An empty list falls back to DefaultKeys. Each key is matched in both
// JSON form ("key": "value") and assignment form (key=value or key: value).
func NewMasker(keys []string) *Masker {
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	m := &Masker{rules: make([]rule, 0, len(keys)*2+len(wellKnown))}
	for _, k := range keys {
		q := regexp.QuoteMeta(k)
		m.rules = append(m.rules,
			rule{regexp.MustCompile(`(?i)("` + q + `"\s*:\s*)["']([^"']+)["']`), `${1}"` + placeholder + `"`},
			rule{regexp.MustCompile(`(?i)(` + q + `\s*[=:]\s*)["']?([^"'\s]+)["']?`), "${1}" + placeholder},
		)
	}
	for _, re := range wellKnown {
		m.rules = append(m.rules, rule{re, placeholder})
	}
	return m
}

// Mask returns s with sensitive values replaced. Key names and surrounding
// structure are preserved so reviewers still see what was configured, just
// not the credential itself.
func (m *Masker) Mask(s string) string {
	for _, r := range m.rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

var defaultMasker = NewMasker(nil)

// Mask masks s using the default key set.
func Mask(s string) string {
	return defaultMasker.Mask(s)
}
