// Package prompts holds the prompt templates sent to the generation service and the
// builders that fill them. Templates are JSON files embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Template is prompt text with {{.Key}} placeholders
type Template string

var placeholderPattern = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9]*)\}\}`)

// Placeholders returns the distinct placeholder keys in order of first use
func (t Template) Placeholders() []string {
	var keys []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(string(t), -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// Fill substitutes data into the template in a single pass, so placeholder-like
// text inside a value is left alone. Keys missing from data stay as written.
func (t Template) Fill(data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(string(t), func(ph string) string {
		if v, ok := data[ph[3:len(ph)-2]]; ok {
			return v
		}
		return ph
	})
}

// Format fills template with data
func Format(template string, data map[string]string) string {
	return Template(template).Fill(data)
}

// catalog maps file name to key to template. It is parsed once on first use.
var catalog = sync.OnceValues(func() (map[string]map[string]Template, error) {
	names, err := fs.Glob(promptFiles, "*.json")
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]Template, len(names))
	for _, name := range names {
		data, err := promptFiles.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var templates map[string]Template
		if err := json.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}
		out[name] = templates
	}
	return out, nil
})

func file(filename string) (map[string]Template, error) {
	all, err := catalog()
	if err != nil {
		return nil, err
	}
	templates, ok := all[filename]
	if !ok {
		return nil, fmt.Errorf("prompt file %s not found", filename)
	}
	return templates, nil
}

// Get returns the template stored under key in filename (e.g. "query.json")
func Get(filename, key string) (string, error) {
	templates, err := file(filename)
	if err != nil {
		return "", err
	}
	t, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return string(t), nil
}

// MustGet is Get for templates the builders cannot run without. It panics on a
// missing file or key.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Keys returns the sorted template keys of filename
func Keys(filename string) ([]string, error) {
	templates, err := file(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(templates))
	for key := range templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Files returns the names of every embedded prompt file
func Files() []string {
	all, err := catalog()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

