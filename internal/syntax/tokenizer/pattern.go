package tokenizer

import (
	"strconv"
	"strings"
)

// Rule patterns are spliced into one alternation per state. The helpers
// below rewrite a pattern's groups so each rule's own numbering survives
// the splice. They understand escapes and character classes and nothing
// else; every other byte is copied through.

// stripGroupNames turns named groups into plain numbered groups so group
// numbers follow source order.
func stripGroupNames(src string) string {
	return rewriteGroups(src, false, 0)
}

// removeCapturingGroups makes every group in src non-capturing.
func removeCapturingGroups(src string) string {
	return rewriteGroups(src, true, 0)
}

// remapBackrefs shifts numeric backreferences by offset.
func remapBackrefs(src string, offset int) string {
	return rewriteGroups(src, false, offset)
}

func rewriteGroups(src string, dropCaptures bool, backrefOffset int) string {
	var b strings.Builder
	b.Grow(len(src) + 8)
	open := "("
	if dropCaptures {
		open = "(?:"
	}
	for i := 0; i < len(src); {
		switch c := src[i]; c {
		case '\\':
			if backrefOffset != 0 && i+1 < len(src) && src[i+1] >= '1' && src[i+1] <= '9' {
				j := i + 1
				for j < len(src) && isDigit(src[j]) {
					j++
				}
				n, _ := strconv.Atoi(src[i+1 : j])
				b.WriteByte('\\')
				b.WriteString(strconv.Itoa(n + backrefOffset))
				i = j
				continue
			}
			end := min(i+2, len(src))
			b.WriteString(src[i:end])
			i = end
		case '[':
			end := skipClass(src, i)
			b.WriteString(src[i:end])
			i = end
		case '(':
			if end, ok := namedGroup(src, i); ok {
				b.WriteString(open)
				i = end
				continue
			}
			if i+1 < len(src) && src[i+1] == '?' {
				b.WriteByte('(')
			} else {
				b.WriteString(open)
			}
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// hasBackref reports whether src contains a numeric backreference.
func hasBackref(src string) bool {
	for i := 0; i < len(src); {
		switch src[i] {
		case '\\':
			if i+1 < len(src) && src[i+1] >= '1' && src[i+1] <= '9' {
				return true
			}
			i += 2
		case '[':
			i = skipClass(src, i)
		default:
			i++
		}
	}
	return false
}

// skipClass returns the index just past the character class opening at i.
func skipClass(src string, i int) int {
	j := i + 1
	if j < len(src) && src[j] == '^' {
		j++
	}
	if j < len(src) && src[j] == ']' {
		j++
	}
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case ']':
			return j + 1
		}
		j++
	}
	return len(src)
}

// namedGroup reports whether a named group opens at i and returns the index
// just past its name.
func namedGroup(src string, i int) (int, bool) {
	rest := src[i:]
	var closer byte
	var skip int
	switch {
	case strings.HasPrefix(rest, "(?P<"):
		closer, skip = '>', 4
	case strings.HasPrefix(rest, "(?<") && len(rest) > 3 && rest[3] != '=' && rest[3] != '!':
		closer, skip = '>', 3
	case strings.HasPrefix(rest, "(?'"):
		closer, skip = '\'', 3
	default:
		return 0, false
	}
	end := strings.IndexByte(rest[skip:], closer)
	if end < 0 {
		return 0, false
	}
	return i + skip + end + 1, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
