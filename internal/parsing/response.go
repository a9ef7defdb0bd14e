// Package parsing classifies raw generation-service responses into SQL candidates,
// explanations, or malformed replies.
package parsing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/askdb/internal/sqlformat"
	"github.com/jonathan/askdb/internal/types"
)

var normalizer = strings.NewReplacer(`\n`, " ", "\n", " ")

// Normalize flattens a raw response: escaped and real newlines become spaces and any
// remaining backslash is removed. Escaped quotes inside JSON strings do not survive
// this step, so such payloads fail to decode.
func Normalize(raw string) string {
	s := normalizer.Replace(raw)
	s = strings.ReplaceAll(s, `\`, "")
	return strings.TrimSpace(s)
}

// ExtractPayload decodes the span between the first '{' and the last '}' of the
// normalized response. This is a bracket heuristic, not a structural parse: prose
// containing braces before or after the payload widens the span and breaks decoding.
func ExtractPayload(raw string) (map[string]any, error) {
	s := Normalize(raw)
	open := strings.Index(s, "{")
	if open < 0 {
		return nil, &ParseError{Message: "no opening brace"}
	}
	closeIdx := strings.LastIndex(s, "}")
	if closeIdx < open {
		return nil, &ParseError{Message: "no closing brace"}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(s[open:closeIdx+1]), &payload); err != nil {
		return nil, &ParseError{Message: "invalid JSON payload", Cause: err}
	}
	return payload, nil
}

// ParseResponse classifies a raw response. A "sql" key wins over "error"; the SQL is
// returned in canonical format. A non-string "sql" value counts as a wrong format.
func ParseResponse(raw string) types.ParsedResult {
	payload, err := ExtractPayload(raw)
	if err != nil {
		return types.Malformed(ReasonNoJSON)
	}

	if v, ok := payload["sql"]; ok {
		sql, isString := v.(string)
		if !isString {
			return types.Malformed(ReasonWrongFormat)
		}
		return types.SQLCandidate(sqlformat.Format(sql))
	}
	if v, ok := payload["error"]; ok {
		if s, isString := v.(string); isString {
			return types.ErrorExplanation(s)
		}
		return types.ErrorExplanation(fmt.Sprint(v))
	}
	return types.Malformed(ReasonWrongFormat)
}
