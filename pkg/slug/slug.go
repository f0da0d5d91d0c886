// Package slug turns portfolio titles into URL path segments: lowercase
// ASCII letters and digits joined by single dashes.
//
//	slug.Make("Ada's Café & Bar")                  // "adas-cafe-bar"
//	slug.Make("Design Portfolio", slug.WithSuffix(6)) // "design-portfolio-k3x9q2"
package slug

import (
	"crypto/rand"
	"strings"
	"unicode"
)

const separator = '-'

type Option func(*config)

type config struct {
	maxLength    int
	suffixLength int
}

// MaxLength caps the slug length, suffix included. Words are never cut
// in half unless the first word alone is too long.
func MaxLength(n int) Option {
	return func(c *config) { c.maxLength = n }
}

// WithSuffix appends a random lowercase alphanumeric suffix of length n.
func WithSuffix(n int) Option {
	return func(c *config) { c.suffixLength = n }
}

// Make returns the slug of s. The result is empty when s has no letters or
// digits and no suffix was requested.
func Make(s string, opts ...Option) string {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	limit := cfg.maxLength
	if limit > 0 && cfg.suffixLength > 0 {
		limit -= cfg.suffixLength + 1
		if limit < 1 {
			return suffix(cfg.suffixLength)
		}
	}

	words := split(s)
	var b strings.Builder
	for _, w := range words {
		next := len(w)
		if b.Len() > 0 {
			next++
		}
		if limit > 0 && b.Len()+next > limit {
			if b.Len() == 0 {
				b.WriteString(w[:limit])
			}
			break
		}
		if b.Len() > 0 {
			b.WriteRune(separator)
		}
		b.WriteString(w)
	}

	if cfg.suffixLength > 0 {
		if b.Len() > 0 {
			b.WriteRune(separator)
		}
		b.WriteString(suffix(cfg.suffixLength))
	}
	return b.String()
}

// split lowercases s, folds common Latin diacritics and returns its runs of
// ASCII letters and digits. Apostrophes join words ("ada's" -> "adas").
func split(s string) []string {
	var (
		words []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if folded, ok := diacritics[r]; ok {
			cur.WriteString(folded)
			continue
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			cur.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			flush()
		}
	}
	flush()
	return words
}

var diacritics = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a", 'ą': "a",
	'ç': "c", 'ć': "c", 'č': "c",
	'ď': "d", 'đ': "d",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e", 'ę': "e", 'ě': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ł': "l",
	'ñ': "n", 'ń': "n", 'ň': "n",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o", 'ø': "o",
	'ř': "r",
	'ś': "s", 'š': "s", 'ș': "s",
	'ť': "t", 'ț': "t",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u", 'ů': "u",
	'ý': "y", 'ÿ': "y",
	'ź': "z", 'ż': "z", 'ž': "z",
	'æ': "ae", 'œ': "oe", 'ß': "ss",
}

const suffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

func suffix(n int) string {
	b := make([]byte, n)
	// crypto/rand.Read never fails on supported platforms.
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = suffixChars[int(b[i])%len(suffixChars)]
	}
	return string(b)
}
