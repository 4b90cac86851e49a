package binding

import (
	"strings"

	"github.com/jwebster45206/story-export/pkg/project"
)

// Escaper applies a project's escaping rules to free text
type Escaper struct {
	escapeChar string
	needed     string
	newline    string
}

// NewEscaper builds an escaper from project settings
func NewEscaper(cfg *project.Config) Escaper {
	if cfg == nil {
		return Escaper{}
	}
	return Escaper{
		escapeChar: cfg.EscapeCharacter,
		needed:     cfg.CharactersNeedingEscaping,
		newline:    cfg.NewlineCharacter,
	}
}

// Escape prefixes every character needing escaping with the escape character and
// replaces line breaks with the newline token. The token itself is never escaped.
func (e Escaper) Escape(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r == '\n' || r == '\r') && e.newline != "" {
			b.WriteString(e.newline)
			continue
		}
		if e.escapeChar != "" && strings.ContainsRune(e.needed, r) {
			b.WriteString(e.escapeChar)
		}
		b.WriteRune(r)
	}
	return b.String()
}
