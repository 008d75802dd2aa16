package reply

import (
	"errors"
	"strconv"
	"strings"
)

// partial holds whichever reply fields have resolved from a JSON prefix.
type partial struct {
	frustration    string
	hasFrustration bool
	attempts       int
	hasAttempts    bool
	response       string
	hasResponse    bool
}

var errMalformed = errors.New("malformed reply JSON")

// scanPartial reads a possibly-truncated flat JSON object and extracts
// whichever reply fields are already decidable. Truncation is tolerated only
// where the remainder cannot change what has been read: a string value cut
// off mid-literal is usable as-is, a number or keyword cut off at end of
// input is not, and a key cut off mid-literal leaves that field unresolved.
func scanPartial(s string) (partial, error) {
	var p partial
	i := skipWS(s, 0)
	if i >= len(s) {
		return p, nil
	}
	if s[i] != '{' {
		return p, errMalformed
	}
	i = skipWS(s, i+1)
	for {
		if i >= len(s) || s[i] == '}' {
			return p, nil
		}
		if s[i] != '"' {
			return p, errMalformed
		}
		key, j, keyClosed := scanString(s, i)
		if !keyClosed {
			return p, nil
		}
		i = skipWS(s, j)
		if i >= len(s) {
			return p, nil
		}
		if s[i] != ':' {
			return p, errMalformed
		}
		i = skipWS(s, i+1)
		if i >= len(s) {
			return p, nil
		}

		switch {
		case s[i] == '"':
			val, j, closed := scanString(s, i)
			p.setString(key, val)
			if !closed {
				// Unterminated string at end of input: its prefix is
				// already final text, nothing after it is decidable.
				return p, nil
			}
			i = skipWS(s, j)
		case s[i] == '-' || (s[i] >= '0' && s[i] <= '9'):
			start := i
			for i < len(s) && strings.ContainsRune("-+.eE0123456789", rune(s[i])) {
				i++
			}
			if i >= len(s) {
				// Digits could still arrive; the value is undecidable.
				return p, nil
			}
			if n, err := strconv.Atoi(s[start:i]); err == nil && key == "number_of_attempts" {
				p.attempts = n
				p.hasAttempts = true
			}
			i = skipWS(s, i)
		case strings.HasPrefix(s[i:], "true") || strings.HasPrefix(s[i:], "false") || strings.HasPrefix(s[i:], "null"):
			for i < len(s) && s[i] >= 'a' && s[i] <= 'z' {
				i++
			}
			if i >= len(s) {
				return p, nil
			}
			i = skipWS(s, i)
		default:
			if isKeywordPrefix(s[i:]) {
				return p, nil
			}
			return p, errMalformed
		}

		if i >= len(s) {
			return p, nil
		}
		switch s[i] {
		case ',':
			i = skipWS(s, i+1)
		case '}':
			return p, nil
		default:
			return p, errMalformed
		}
	}
}

func (p *partial) setString(key, val string) {
	switch key {
	case "user_frustration_level":
		p.frustration = val
		p.hasFrustration = true
	case "response":
		p.response = val
		p.hasResponse = true
	}
}

// scanString decodes a JSON string starting at the opening quote. It returns
// the value, the index past the closing quote, and whether the literal was
// closed. On truncation any dangling escape at end of input is dropped so the
// returned prefix is always final text.
func scanString(s string, i int) (string, int, bool) {
	var sb strings.Builder
	i++
	for i < len(s) {
		c := s[i]
		if c == '"' {
			return sb.String(), i + 1, true
		}
		if c != '\\' {
			sb.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(s) {
			return sb.String(), len(s), false
		}
		switch s[i+1] {
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		case '/':
			sb.WriteByte('/')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			if i+6 > len(s) {
				return sb.String(), len(s), false
			}
			if code, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
				sb.WriteRune(rune(code))
			} else {
				sb.WriteString(s[i+1 : i+6])
			}
			i += 6
			continue
		default:
			sb.WriteByte(s[i+1])
		}
		i += 2
	}
	return sb.String(), len(s), false
}

func isKeywordPrefix(s string) bool {
	for _, kw := range []string{"true", "false", "null"} {
		if strings.HasPrefix(kw, s) {
			return true
		}
	}
	return false
}

func skipWS(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
