// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \t]*\n?(.*?)```")

// ExtractCodeBlock returns the body of the first fenced block whose language tag is one
// of langs (an empty tag matches any untagged fence). Tagged fences win over untagged
// ones. With no matching fence the trimmed text is returned with stray fences removed.
func ExtractCodeBlock(text string, langs ...string) string {
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	var untagged string
	found := false
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if tag == "" {
			if !found {
				untagged = m[2]
				found = true
			}
			continue
		}
		for _, lang := range langs {
			if tag == strings.ToLower(lang) {
				return strings.TrimSpace(m[2])
			}
		}
	}
	if found {
		return strings.TrimSpace(untagged)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "```", ""))
}
