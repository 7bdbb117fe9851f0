// Package plugins provides the registry of dataset format readers.
//
// Every reader package under internal/formats registers itself from init, so
// importing a reader makes its mode available to the dispatcher.
package plugins

import (
	"sort"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/ir"
)

// Default shift-recovery window for XML annotations, in code points.
const (
	DefaultShiftBefore = 10
	DefaultShiftAfter  = 100
)

// DetectResult reports whether a path looks like a given format.
type DetectResult struct {
	Detected bool   `json:"detected"`
	Format   string `json:"format,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Options carries every reader option. Each reader reads only its own fields.
type Options struct {
	// SplitKey keeps only token-tag documents whose name contains it.
	SplitKey string

	// Lenient skips token-tag lines with an unexpected column count.
	Lenient bool

	// AllowShift enables XML shift recovery within [ShiftBefore, ShiftAfter].
	AllowShift  bool
	ShiftBefore int
	ShiftAfter  int

	// AllowNIL keeps XML mentions without an entity.
	AllowNIL bool

	// AllowRepeat tolerates conflicting XML records at the same span.
	AllowRepeat bool

	// HasProb requires a prob field in every XML annotation.
	HasProb bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ShiftBefore: DefaultShiftBefore,
		ShiftAfter:  DefaultShiftAfter,
	}
}

// FormatHandler reads one dataset format.
type FormatHandler interface {
	// Detect checks if the given path is handled by this format.
	Detect(path string) (*DetectResult, error)

	// Load parses the dataset at path.
	Load(path string, opts Options) (*ir.Dataset, error)
}

// Manifest describes a registered format.
type Manifest struct {
	// Mode is the canonical mode name (e.g., "token-tag").
	Mode string `json:"mode"`

	// Aliases are the legacy mode names accepted for Mode.
	Aliases []string `json:"aliases,omitempty"`

	// Description is a one-line summary shown by the CLI.
	Description string `json:"description"`

	// Extensions lists typical file extensions.
	Extensions []string `json:"extensions,omitempty"`

	// Priority orders detection; higher runs first.
	Priority int `json:"-"`
}

// EmbeddedPlugin wraps a format handler with its manifest.
type EmbeddedPlugin struct {
	Manifest *Manifest
	Format   FormatHandler
}

// embeddedRegistry holds all registered plugins keyed by mode.
var embeddedRegistry = make(map[string]*EmbeddedPlugin)

// aliasIndex maps every accepted name to its mode.
var aliasIndex = make(map[string]string)

// RegisterEmbeddedPlugin registers a plugin under its mode and aliases.
func RegisterEmbeddedPlugin(p *EmbeddedPlugin) {
	if p.Manifest == nil || p.Manifest.Mode == "" {
		return
	}
	embeddedRegistry[p.Manifest.Mode] = p
	aliasIndex[p.Manifest.Mode] = p.Manifest.Mode
	for _, a := range p.Manifest.Aliases {
		aliasIndex[a] = p.Manifest.Mode
	}
}

// ResolveMode returns the canonical mode for a mode name or alias.
func ResolveMode(name string) (string, bool) {
	mode, ok := aliasIndex[strings.TrimSpace(name)]
	return mode, ok
}

// GetEmbeddedPlugin returns a plugin by mode or alias, or nil if not found.
func GetEmbeddedPlugin(name string) *EmbeddedPlugin {
	mode, ok := ResolveMode(name)
	if !ok {
		return nil
	}
	return embeddedRegistry[mode]
}

// HasEmbeddedPlugin checks if a plugin with the given mode or alias exists.
func HasEmbeddedPlugin(name string) bool {
	return GetEmbeddedPlugin(name) != nil
}

// ListEmbeddedPlugins returns all registered plugins, highest priority first,
// then by mode.
func ListEmbeddedPlugins() []*EmbeddedPlugin {
	result := make([]*EmbeddedPlugin, 0, len(embeddedRegistry))
	for _, p := range embeddedRegistry {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Manifest, result[j].Manifest
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Mode < b.Mode
	})
	return result
}

// ClearEmbeddedRegistry clears all registered plugins (for testing).
func ClearEmbeddedRegistry() {
	embeddedRegistry = make(map[string]*EmbeddedPlugin)
	aliasIndex = make(map[string]string)
}
