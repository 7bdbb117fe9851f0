package conll

import (
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
)

// Handler implements plugins.FormatHandler for token-tag files.
type Handler struct{}

// Manifest returns the plugin manifest for registration.
func Manifest() *plugins.Manifest {
	return &plugins.Manifest{
		Mode:        FormatName,
		Aliases:     []string{"tsv"},
		Description: "token-tagged text with -DOCSTART- headers (AIDA-CoNLL style)",
		Extensions:  []string{".tsv", ".conll"},
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

// Detect reports token-tag files by extension or a -DOCSTART- header.
func (h *Handler) Detect(path string) (*plugins.DetectResult, error) {
	return base.DetectFile(path, base.DetectConfig{
		Extensions:     Manifest().Extensions,
		ContentMarkers: []string{docStart},
		FormatName:     FormatName,
	})
}

// Load parses the token-tag file at path.
func (h *Handler) Load(path string, opts plugins.Options) (*ir.Dataset, error) {
	return ParseFile(path, Options{SplitKey: opts.SplitKey, Lenient: opts.Lenient})
}
