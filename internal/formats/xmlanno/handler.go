package xmlanno

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/formats/base"
)

// Handler implements plugins.FormatHandler for XML annotation datasets.
type Handler struct{}

// Manifest returns the plugin manifest for registration.
func Manifest() *plugins.Manifest {
	return &plugins.Manifest{
		Mode:        FormatName,
		Description: "line-oriented XML annotations with a RawText directory",
		Extensions:  []string{".xml"},
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

// SplitPath derives the dataset root and name from the annotation file path
// {root}/{name}/{name}.xml. The name runs up to the first dot of the base name.
func SplitPath(path string) (root, name string) {
	name = filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return filepath.Dir(filepath.Dir(path)), name
}

// Detect accepts annotation files that sit next to a RawText directory.
func (h *Handler) Detect(path string) (*plugins.DetectResult, error) {
	return base.DetectFile(path, base.DetectConfig{
		Extensions:     Manifest().Extensions,
		ContentMarkers: []string{docMarker},
		RequireContent: true,
		FormatName:     FormatName,
		CustomValidator: func(path string, _ []byte) (bool, string) {
			info, err := os.Stat(filepath.Join(filepath.Dir(path), RawTextDir))
			if err == nil && info.IsDir() {
				return true, "RawText directory next to annotation file"
			}
			return false, ""
		},
	})
}

// Load parses the dataset whose annotation file is path.
func (h *Handler) Load(path string, opts plugins.Options) (*ir.Dataset, error) {
	root, name := SplitPath(path)
	return ParseDir(root, name, OptionsFrom(opts))
}
