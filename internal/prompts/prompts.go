// Package prompts holds the named prompt templates used for analysis calls.
// Templates live as plain text with {{TOKEN}} placeholders; overrides can be
// dropped into the config dir's prompts/ directory, embedded defaults cover
// the rest.
package prompts

import (
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

//go:embed templates/*.txt
var defaults embed.FS

// Template names.
const (
	Analysis = "analysis"
	Core     = "core"
	Behavior = "behavior"
	Journal  = "journal"
	Stats    = "stats"
)

// ErrNotFound is returned when a template name is unknown. A missing template
// is a recoverable condition: the caller aborts the operation or falls back,
// it never crashes the turn.
var ErrNotFound = errors.New("prompts: template not found")

var names = []string{Analysis, Core, Behavior, Journal, Stats}

// Registry resolves template names to their text.
type Registry struct {
	templates map[string]string
}

// Load builds a registry from embedded defaults, then applies any overrides
// found in overrideDir (<name>.txt). overrideDir may be empty or missing.
func Load(overrideDir string) (*Registry, error) {
	r := &Registry{templates: make(map[string]string, len(names))}
	for _, name := range names {
		data, err := defaults.ReadFile("templates/" + name + ".txt")
		if err != nil {
			return nil, err
		}
		r.templates[name] = strings.TrimSpace(string(data))
	}
	if overrideDir != "" {
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(overrideDir, name+".txt"))
			if err != nil {
				continue
			}
			if text := strings.TrimSpace(string(data)); text != "" {
				r.templates[name] = text
			}
		}
	}
	return r, nil
}

// Get returns the raw template text.
func (r *Registry) Get(name string) (string, error) {
	t, ok := r.templates[name]
	if !ok {
		return "", ErrNotFound
	}
	return t, nil
}

// Render substitutes {{TOKEN}} placeholders with the given values.
// Unreferenced vars are ignored; unmatched tokens are left in place so a
// template problem is visible rather than silently blanked.
func (r *Registry) Render(name string, vars map[string]string) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	for k, v := range vars {
		t = strings.ReplaceAll(t, "{{"+k+"}}", v)
	}
	return t, nil
}
