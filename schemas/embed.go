// Package schemas holds the JSON Schema documents for askdb inputs.
package schemas

import "embed"

// Schema document names
const (
	Config     = "config.schema.json"
	AskRequest = "ask_request.schema.json"
)

// FS holds every *.schema.json document in this directory
//
//go:embed *.schema.json
var FS embed.FS
