package predicate

import (
	"regexp"
	"strings"
)

// MatchLike reports whether value matches an SQL LIKE pattern using the
// algebra's in-memory semantics: '%' becomes ".*", '_' becomes ".", and the
// match is anchored to the full string. This is used only when a
// LikeComparison is evaluated outside SQL; the compiler lowers it to a
// dialect LIKE expression instead.
func MatchLike(pattern, value string) bool {
	re, err := compileLikePattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

func compileLikePattern(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
