package kilt

import (
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
)

// Handler implements plugins.FormatHandler for JSON-lines records.
type Handler struct{}

// Manifest returns the plugin manifest for registration.
func Manifest() *plugins.Manifest {
	return &plugins.Manifest{
		Mode:        FormatName,
		Aliases:     []string{"gendre_jsonl", "jsonl"},
		Description: "KILT/GENRE JSON-lines records with a [START_ENT] marker and candidates",
		Extensions:  []string{".jsonl"},
		Priority:    10,
	}
}

// Register registers this plugin with the embedded registry.
func Register() {
	plugins.RegisterEmbeddedPlugin(&plugins.EmbeddedPlugin{
		Manifest: Manifest(),
		Format:   &Handler{},
	})
}

func init() {
	Register()
}

// Detect looks for the start marker on the first line.
func (h *Handler) Detect(path string) (*plugins.DetectResult, error) {
	return base.DetectFile(path, base.DetectConfig{
		Extensions:     Manifest().Extensions,
		RequireContent: true,
		FormatName:     FormatName,
		CustomValidator: func(_ string, head []byte) (bool, string) {
			if strings.Contains(base.FirstLine(head), strings.TrimSpace(StartMarker)) {
				return true, "first record carries " + StartMarker
			}
			return false, ""
		},
	})
}

// Load parses the records file at path.
func (h *Handler) Load(path string, _ plugins.Options) (*ir.Dataset, error) {
	return ParseFile(path)
}
