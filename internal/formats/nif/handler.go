package nif

import (
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
)

// URI markers that tell the collections apart.
const (
	marker2016 = "oke-challenge-2016"
	marker2015 = "oke-challenge/"
)

// Handler implements plugins.FormatHandler for one NIF dialect.
type Handler struct {
	mode string
}

// NewHandler returns the handler for mode.
func NewHandler(mode string) *Handler {
	return &Handler{mode: mode}
}

// Manifests returns the plugin manifests for the three dialects.
func Manifests() []*plugins.Manifest {
	return []*plugins.Manifest{
		{
			Mode:        Mode2015,
			Aliases:     []string{"oke_2015"},
			Description: "OKE 2015 challenge NIF Turtle (temporary ids after sentence-)",
			Extensions:  []string{".ttl"},
			Priority:    20,
		},
		{
			Mode:        Mode2016,
			Aliases:     []string{"oke_2016"},
			Description: "OKE 2016 challenge NIF Turtle (temporary ids after task-1/)",
			Extensions:  []string{".ttl"},
			Priority:    20,
		},
		{
			Mode:        ModeN3,
			Aliases:     []string{"n3"},
			Description: "N3 collection NIF Turtle (Reuters-128, RSS-500)",
			Extensions:  []string{".ttl"},
			Priority:    10,
		},
	}
}

// Register registers the three dialects with the embedded registry.
func Register() {
	for _, m := range Manifests() {
		plugins.RegisterEmbeddedPlugin(&plugins.EmbeddedPlugin{
			Manifest: m,
			Format:   NewHandler(m.Mode),
		})
	}
}

func init() {
	Register()
}

// Detect tells the dialects apart by the challenge URIs they use.
func (h *Handler) Detect(path string) (*plugins.DetectResult, error) {
	cfg := base.DetectConfig{
		Extensions: []string{".ttl"},
		FormatName: h.mode,
	}
	switch h.mode {
	case Mode2016:
		cfg.ContentMarkers = []string{marker2016}
		cfg.RequireContent = true
	case Mode2015:
		cfg.ContentMarkers = []string{marker2015}
		cfg.RequireContent = true
		cfg.ExcludeMarkers = []string{marker2016}
	default:
		cfg.ExcludeMarkers = []string{marker2016, marker2015}
	}
	return base.DetectFile(path, cfg)
}

// Load parses the NIF file at path.
func (h *Handler) Load(path string, _ plugins.Options) (*ir.Dataset, error) {
	return ParseFile(h.mode, path)
}
