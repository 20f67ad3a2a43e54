package perms

import (
	"regexp"
	"sync"

	"github.com/rs/zerolog"
)

// Matcher evaluates rule patterns against candidate strings. Patterns are
// regular expressions without delimiters, applied in search mode: a match
// anywhere inside the candidate counts. Matching is case-sensitive.
//
// Empty and malformed patterns fail closed (non-matching) so a single bad
// stored rule cannot open access or break the decision path.
//
// Compiled patterns are cached; the same handful of patterns repeats across
// rules and requests, so the cache is read-heavy and never evicted.
type Matcher struct {
	cache  sync.Map // pattern string -> *regexp.Regexp, or nil for broken patterns
	logger zerolog.Logger
}

// NewMatcher creates a Matcher logging compile failures to logger.
func NewMatcher(logger zerolog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Matches reports whether candidate matches pattern. Malformed patterns
// are logged once (on first compile) and treated as non-matching.
func (m *Matcher) Matches(pattern, candidate string) bool {
	if pattern == "" {
		return false
	}
	re := m.compile(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(candidate)
}

func (m *Matcher) compile(pattern string) *regexp.Regexp {
	if cached, ok := m.cache.Load(pattern); ok {
		// Broken patterns are cached as a typed nil so they are only
		// compiled (and logged) once.
		re, _ := cached.(*regexp.Regexp)
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		m.logger.Warn().Err(err).Str("pattern", pattern).
			Msg("permission pattern failed to compile, treating as non-matching")
		incPatternError()
		var broken *regexp.Regexp
		m.cache.Store(pattern, broken)
		return nil
	}

	m.cache.Store(pattern, re)
	return re
}
