package batch

import "strings"

// SplitStatements splits a script on semicolons, honoring single- and
// double-quoted strings, line comments (--), and block comments so embedded
// semicolons do not break statements apart. Empty statements are dropped.
func SplitStatements(script string) []string {
	var stmts []string
	var start int

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)
	state := stateNormal

	flush := func(end int) {
		stmt := strings.TrimSpace(script[start:end])
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingleQuote
			case c == '"':
				state = stateDoubleQuote
			case c == '-' && i+1 < len(script) && script[i+1] == '-':
				state = stateLineComment
				i++
			case c == '/' && i+1 < len(script) && script[i+1] == '*':
				state = stateBlockComment
				i++
			case c == ';':
				flush(i)
				start = i + 1
			}
		case stateSingleQuote:
			if c == '\'' {
				// doubled quote is an escaped quote, stay in string
				if i+1 < len(script) && script[i+1] == '\'' {
					i++
				} else {
					state = stateNormal
				}
			}
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(script) && script[i+1] == '/' {
				state = stateNormal
				i++
			}
		}
	}
	flush(len(script))
	return stmts
}
