package unseen

import (
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
)

// Handler implements plugins.FormatHandler for the unseen-mentions corpus.
type Handler struct{}

// Manifest returns the plugin manifest for registration.
func Manifest() *plugins.Manifest {
	return &plugins.Manifest{
		Mode:        FormatName,
		Aliases:     []string{"unseen_mentions"},
		Description: "unseen-mentions JSON lines with left and right contexts",
		Extensions:  []string{".json", ".jsonl"},
		Priority:    5,
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

// Detect requires the mention_as_list key in the sniffed content.
func (h *Handler) Detect(path string) (*plugins.DetectResult, error) {
	return base.DetectFile(path, base.DetectConfig{
		Extensions:     Manifest().Extensions,
		ContentMarkers: []string{`"mention_as_list"`},
		RequireContent: true,
		FormatName:     FormatName,
	})
}

// Load parses the corpus file at path.
func (h *Handler) Load(path string, _ plugins.Options) (*ir.Dataset, error) {
	return ParseFile(path)
}
