// Package sqlformat renders SQL text in a canonical layout: keywords upper-cased,
// whitespace collapsed, one top-level clause per line, select-list items and
// WHERE/HAVING conditions on their own lines. Identifiers, literals and function
// names keep their original spelling.
package sqlformat

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokNumber
	tokString
	tokQuoted
	tokPunct
	tokOp
	tokLineComment
	tokBlockComment
)

type token struct {
	kind tokenKind
	text string
}

var keywords = toSet(
	"SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "IN", "IS", "NULL", "AS", "ON",
	"JOIN", "INNER", "LEFT", "RIGHT", "FULL", "OUTER", "CROSS", "NATURAL", "APPLY", "USING",
	"GROUP", "BY", "ORDER", "HAVING", "LIMIT", "OFFSET", "FETCH", "NEXT", "FIRST", "ROWS", "ROW", "ONLY",
	"UNION", "EXCEPT", "INTERSECT", "ALL", "DISTINCT", "TOP", "PERCENT", "TIES",
	"ASC", "DESC", "LIKE", "ILIKE", "BETWEEN", "EXISTS", "ANY", "SOME",
	"CASE", "WHEN", "THEN", "ELSE", "END", "CAST", "OVER", "PARTITION",
	"WITH", "INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE",
	"TRUE", "FALSE", "INTERVAL", "NULLS",
)

// clause keywords start a new line when they appear outside parentheses
var clauseKeywords = toSet(
	"SELECT", "FROM", "WHERE", "GROUP", "ORDER", "HAVING", "LIMIT", "OFFSET",
	"UNION", "EXCEPT", "INTERSECT",
)

// join keywords start a new line unless they continue a join already started
var joinKeywords = toSet("JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "OUTER", "NATURAL")

// keywords that are also called as functions, written without a space before "("
var functionKeywords = toSet("LEFT", "RIGHT", "CAST", "REPLACE")

var twoCharOps = toSet("<=", ">=", "<>", "!=", "||", "::")

const selectIndent = "       " // len("SELECT ")

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Format returns sql in canonical layout. Empty or whitespace-only input yields "".
func Format(sql string) string {
	tokens := tokenize(sql)
	if len(tokens) == 0 {
		return ""
	}

	f := &formatter{}
	for i, tok := range tokens {
		var next *token
		if i+1 < len(tokens) {
			next = &tokens[i+1]
		}
		f.emit(tok, next)
	}
	return strings.TrimSpace(f.out.String())
}

type formatter struct {
	out strings.Builder

	prev      *token
	prevUpper string
	prevKw    bool

	depth          int
	caseDepth      int
	clause         string
	betweenPending bool

	noSpaceNext bool
	newlineNext bool
}

func (f *formatter) emit(tok token, next *token) {
	text := tok.text
	upper := strings.ToUpper(text)
	afterDot := f.prev != nil && f.prev.text == "."
	isKw := tok.kind == tokWord && !afterDot && keywords[upper]
	if isKw {
		text = upper
	}

	sep := f.separator(tok, isKw, upper)

	if isKw && f.depth == 0 && f.prev != nil {
		switch {
		case clauseKeywords[upper]:
			sep = "\n"
		case joinKeywords[upper] && !(next != nil && next.text == "(") && !joinKeywords[f.prevUpper]:
			sep = "\n"
		case (upper == "AND" || upper == "OR") && f.caseDepth == 0 &&
			(f.clause == "WHERE" || f.clause == "HAVING") &&
			!(upper == "AND" && f.betweenPending):
			sep = "\n  "
		}
	}

	if isKw {
		switch upper {
		case "BETWEEN":
			f.betweenPending = true
		case "AND":
			f.betweenPending = false
		case "CASE":
			f.caseDepth++
		case "END":
			if f.caseDepth > 0 {
				f.caseDepth--
			}
		}
		if f.depth == 0 && clauseKeywords[upper] {
			f.clause = upper
		}
	}

	f.out.WriteString(sep)
	f.out.WriteString(text)

	switch {
	case tok.text == "(":
		f.depth++
	case tok.text == ")":
		if f.depth > 0 {
			f.depth--
		}
	case tok.text == "," && f.depth == 0 && f.caseDepth == 0 && f.clause == "SELECT":
		f.out.WriteString("\n" + selectIndent)
		f.noSpaceNext = true
	case tok.kind == tokLineComment:
		f.newlineNext = true
	case (tok.text == "-" || tok.text == "+") && f.isUnaryPosition():
		f.noSpaceNext = true
	}

	t := tok
	f.prev = &t
	f.prevUpper = upper
	f.prevKw = isKw
}

// separator returns the whitespace that precedes tok on the same line
func (f *formatter) separator(tok token, isKw bool, upper string) string {
	if f.prev == nil {
		return ""
	}
	if f.newlineNext {
		f.newlineNext = false
		f.noSpaceNext = false
		return "\n"
	}
	if f.noSpaceNext {
		f.noSpaceNext = false
		return ""
	}
	switch tok.text {
	case ",", ")", ".", ";":
		return ""
	case "(":
		if f.prev.kind == tokQuoted || (f.prev.kind == tokWord && (!f.prevKw || functionKeywords[f.prevUpper])) {
			return ""
		}
	}
	if tok.kind == tokOp && tok.text == "::" {
		return ""
	}
	switch f.prev.text {
	case "(", ".", "::":
		return ""
	case ";":
		return "\n"
	}
	return " "
}

// isUnaryPosition reports whether a sign at the current position applies to the
// following operand rather than acting as a binary operator
func (f *formatter) isUnaryPosition() bool {
	p := f.prev
	if p == nil {
		return true
	}
	switch p.kind {
	case tokOp:
		return true
	case tokPunct:
		return p.text != ")"
	case tokWord:
		return f.prevKw
	}
	return false
}

func tokenize(s string) []token {
	var tokens []token
	n := len(s)
	i := 0
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++

		case c == '-' && i+1 < n && s[i+1] == '-':
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				j = n - i
			}
			tokens = append(tokens, token{tokLineComment, strings.TrimRight(s[i:i+j], " \t\r")})
			i += j

		case c == '/' && i+1 < n && s[i+1] == '*':
			j := strings.Index(s[i+2:], "*/")
			end := n
			if j >= 0 {
				end = i + 2 + j + 2
			}
			tokens = append(tokens, token{tokBlockComment, s[i:end]})
			i = end

		case c == '\'':
			end := scanQuoted(s, i, '\'')
			tokens = append(tokens, token{tokString, s[i:end]})
			i = end

		case (c == 'N' || c == 'n') && i+1 < n && s[i+1] == '\'':
			end := scanQuoted(s, i+1, '\'')
			tokens = append(tokens, token{tokString, s[i:end]})
			i = end

		case c == '"' || c == '`':
			end := scanQuoted(s, i, c)
			tokens = append(tokens, token{tokQuoted, s[i:end]})
			i = end

		case c == '[':
			j := strings.IndexByte(s[i:], ']')
			end := n
			if j >= 0 {
				end = i + j + 1
			}
			tokens = append(tokens, token{tokQuoted, s[i:end]})
			i = end

		case isDigit(c) || (c == '.' && i+1 < n && isDigit(s[i+1]) && !prevIsOperand(tokens)):
			j := i
			for j < n && (isDigit(s[j]) || s[j] == '.') {
				j++
			}
			j = scanExponent(s, j)
			tokens = append(tokens, token{tokNumber, s[i:j]})
			i = j

		case isWordStart(s, i):
			j := i
			for j < n {
				r, size := utf8.DecodeRuneInString(s[j:])
				if !(r == '_' || r == '$' || r == '@' || r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
					break
				}
				j += size
			}
			tokens = append(tokens, token{tokWord, s[i:j]})
			i = j

		case i+1 < n && twoCharOps[s[i:i+2]]:
			tokens = append(tokens, token{tokOp, s[i : i+2]})
			i += 2

		case strings.IndexByte("=<>!+-*/%|&^~", c) >= 0:
			tokens = append(tokens, token{tokOp, string(c)})
			i++

		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			tokens = append(tokens, token{tokPunct, s[i : i+size]})
			i += size
		}
	}

	// "*" directly after "(" or "." or in a select list is a punct, not an operator
	for k := range tokens {
		if tokens[k].text == "*" && k > 0 {
			p := tokens[k-1]
			if p.text == "(" || p.text == "." || p.text == "," || (p.kind == tokWord && keywords[strings.ToUpper(p.text)]) {
				tokens[k].kind = tokPunct
			}
		}
	}
	return tokens
}

func scanQuoted(s string, start int, quote byte) int {
	n := len(s)
	j := start + 1
	for j < n {
		if s[j] == quote {
			if j+1 < n && s[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return n
}

// scanExponent extends a number ending at i over an e[+-]digits suffix
func scanExponent(s string, i int) int {
	if i >= len(s) || (s[i] != 'e' && s[i] != 'E') {
		return i
	}
	j := i + 1
	if j < len(s) && (s[j] == '+' || s[j] == '-') {
		j++
	}
	if j >= len(s) || !isDigit(s[j]) {
		return i
	}
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	return j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordStart(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r == '_' || r == '@' || r == '#' || unicode.IsLetter(r)
}

func prevIsOperand(tokens []token) bool {
	if len(tokens) == 0 {
		return false
	}
	k := tokens[len(tokens)-1].kind
	return k == tokWord || k == tokQuoted
}
