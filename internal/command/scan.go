package command

type operator struct {
	pos   int
	width int
}

// findOperator returns the first unquoted, unescaped occurrence of sym that
// is neither the first nor the last character of text. A following '&'
// (for '|') or '>' (for '>') widens the operator to two bytes.
func findOperator(text string, sym byte) (operator, bool) {
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\' && quote != '\'':
			i++
			continue
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '\'' || c == '"':
			quote = c
			continue
		case c != sym:
			continue
		}

		width := 1
		if i+1 < len(text) {
			next := text[i+1]
			if (sym == '|' && next == '&') || (sym == '>' && next == '>') {
				width = 2
			}
		}
		if i == 0 || i+width >= len(text) {
			i += width - 1
			continue
		}
		return operator{pos: i, width: width}, true
	}
	return operator{}, false
}

// escaped reports whether the byte at pos is preceded by an odd number of
// backslashes.
func escaped(text string, pos int) bool {
	n := 0
	for i := pos - 1; i >= 0 && text[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
