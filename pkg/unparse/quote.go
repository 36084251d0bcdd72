package unparse

import "strings"

// escapes is applied in order; the backslash must come first so later
// replacements are not escaped twice.
var escapes = []struct{ from, to string }{
	{`\`, `\\`},
	{`"`, `\"`},
	{"\n", `\n`},
	{"\r", `\r`},
	{"\t", `\t`},
}

// Quote renders value as a double-quoted string literal.
func Quote(value string) string {
	for _, esc := range escapes {
		value = strings.ReplaceAll(value, esc.from, esc.to)
	}

	return `"` + value + `"`
}
