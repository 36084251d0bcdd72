package pyparse

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/pyrefactor/pkg/pyast"
)

const (
	hexBase        = 16
	octalBase      = 8
	maxOctalDigits = 3
	shortHexLen    = 2
	unicodeHexLen  = 4
	wideHexLen     = 8
)

// parseNumber decodes an integer, float or imaginary literal.
func parseNumber(text string) (pyast.Number, bool) {
	clean := strings.ReplaceAll(text, "_", "")

	if strings.HasSuffix(clean, "j") || strings.HasSuffix(clean, "J") {
		imag, err := strconv.ParseFloat(clean[:len(clean)-1], 64)
		if err != nil {
			return pyast.Number{}, false
		}

		return pyast.ComplexValue(0, imag), true
	}

	// Python 2 long suffix.
	clean = strings.TrimRight(clean, "lL")

	lower := strings.ToLower(clean)
	isFloat := !strings.HasPrefix(lower, "0x") && strings.ContainsAny(lower, ".e")

	if isFloat {
		value, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return pyast.Number{}, false
		}

		return pyast.FloatValue(value), true
	}

	if len(lower) > 1 && lower[0] == '0' && lower[1] >= '0' && lower[1] <= '9' {
		// Legacy octal (0777) or zero padding (000).
		lower = "0o" + strings.TrimLeft(lower, "0")
		if lower == "0o" {
			lower = "0"
		}
	}

	value, ok := new(big.Int).SetString(lower, 0)
	if !ok {
		return pyast.Number{}, false
	}

	return pyast.BigIntValue(value), true
}

// decodeString returns the value of a plain or raw string literal. Byte
// strings and f-strings are reported as not decodable.
func decodeString(text string) (string, bool) {
	idx := 0
	raw := false

	for idx < len(text) && text[idx] != '\'' && text[idx] != '"' {
		switch text[idx] {
		case 'r', 'R':
			raw = true
		case 'u', 'U':
		default:
			return "", false
		}

		idx++
	}

	body := text[idx:]

	var quote string

	switch {
	case strings.HasPrefix(body, `"""`), strings.HasPrefix(body, `'''`):
		quote = body[:3]
	case body != "":
		quote = body[:1]
	default:
		return "", false
	}

	if len(body) < 2*len(quote) || !strings.HasSuffix(body, quote) {
		return "", false
	}

	inner := body[len(quote) : len(body)-len(quote)]
	if raw {
		return inner, true
	}

	return unescape(inner)
}

var simpleEscapes = map[byte]string{
	'\\': `\`,
	'\'': `'`,
	'"':  `"`,
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'v':  "\v",
}

// unescape interprets backslash escapes. Unknown escapes are kept as
// written, as Python does. Named escapes (\N{...}) and hex escapes that do
// not form a valid code point report false so the literal stays opaque.
func unescape(inner string) (string, bool) {
	if !strings.Contains(inner, `\`) {
		return inner, true
	}

	var out strings.Builder

	for idx := 0; idx < len(inner); idx++ {
		char := inner[idx]
		if char != '\\' || idx+1 >= len(inner) {
			out.WriteByte(char)

			continue
		}

		next := inner[idx+1]

		if repl, ok := simpleEscapes[next]; ok {
			out.WriteString(repl)

			idx++

			continue
		}

		switch {
		case next == '\n':
			idx++
		case next >= '0' && next <= '7':
			end := idx + 1
			for end < len(inner) && end-idx-1 < maxOctalDigits && inner[end] >= '0' && inner[end] <= '7' {
				end++
			}

			code, _ := strconv.ParseUint(inner[idx+1:end], octalBase, 32)
			out.WriteRune(rune(code))

			idx = end - 1
		case next == 'N':
			return "", false
		case next == 'x' || next == 'u' || next == 'U':
			width := map[byte]int{'x': shortHexLen, 'u': unicodeHexLen, 'U': wideHexLen}[next]

			if idx+2+width > len(inner) {
				return "", false
			}

			code, err := strconv.ParseUint(inner[idx+2:idx+2+width], hexBase, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", false
			}

			out.WriteRune(rune(code))

			idx += 1 + width
		default:
			out.WriteByte(char)
		}
	}

	return out.String(), true
}
