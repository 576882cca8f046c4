package cache

import (
	"regexp"
	"strings"
)

// newMatcher translates a simple glob pattern into a key predicate.
//
// Grammar: literal characters match themselves, '*' matches zero or more of
// any character. Matching is anchored (the whole key must match) and
// case-insensitive. The special pattern "*" matches every key and is handled
// by callers as a fast path before reaching here.
//
// newMatcher never fails: if the translated expression does not compile the
// predicate degrades to a case-insensitive substring check against the
// pattern with its wildcards stripped, so bulk invalidation always proceeds.
func newMatcher(pattern string) func(key string) bool {
	re, err := regexp.Compile(translatePattern(pattern))
	if err != nil {
		return containsMatcher(pattern)
	}
	return re.MatchString
}

// translatePattern converts the glob into an anchored, case-insensitive
// regular expression. Every literal segment is quoted so only '*' carries
// meta meaning.
func translatePattern(pattern string) string {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return "(?i)^" + strings.Join(parts, ".*") + "$"
}

// containsMatcher is the degraded predicate used when pattern translation
// fails: any key containing the wildcard-stripped pattern matches.
func containsMatcher(pattern string) func(key string) bool {
	needle := strings.ToLower(strings.ReplaceAll(pattern, "*", ""))
	return func(key string) bool {
		return strings.Contains(strings.ToLower(key), needle)
	}
}
