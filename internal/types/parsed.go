package types

// ParseKind tags the variant held by a ParsedResult
type ParseKind string

const (
	// ParseSQL is a SQL candidate in canonical format
	ParseSQL ParseKind = "sql"
	// ParseError is an explanation supplied by the generation service
	ParseError ParseKind = "error"
	// ParseMalformed means no usable payload was found
	ParseMalformed ParseKind = "malformed"
)

// ParsedResult is the classification of one raw generation response.
// Text holds the SQL, the explanation, or the malformed reason depending on Kind.
type ParsedResult struct {
	Kind ParseKind `json:"kind"`
	Text string    `json:"text"`
}

// SQLCandidate builds a ParsedResult holding formatted SQL
func SQLCandidate(sql string) ParsedResult {
	return ParsedResult{Kind: ParseSQL, Text: sql}
}

// ErrorExplanation builds a ParsedResult holding a refusal from the generation service
func ErrorExplanation(text string) ParsedResult {
	return ParsedResult{Kind: ParseError, Text: text}
}

// Malformed builds a ParsedResult holding the reason no payload was found
func Malformed(reason string) ParsedResult {
	return ParsedResult{Kind: ParseMalformed, Text: reason}
}

// IsSQL reports whether the result is a SQL candidate
func (p ParsedResult) IsSQL() bool {
	return p.Kind == ParseSQL
}
