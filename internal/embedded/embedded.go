// Package embedded links every dataset reader into the binary. Importing it
// runs each reader's init, which registers the reader's mode and aliases.
package embedded

import (
	"github.com/FocuswithJustin/DeepEL/core/plugins"

	_ "github.com/FocuswithJustin/DeepEL/internal/formats/conll"
	_ "github.com/FocuswithJustin/DeepEL/internal/formats/kilt"
	_ "github.com/FocuswithJustin/DeepEL/internal/formats/nif"
	_ "github.com/FocuswithJustin/DeepEL/internal/formats/unseen"
	_ "github.com/FocuswithJustin/DeepEL/internal/formats/xmlanno"
)

// IsInitialized reports whether the readers have registered.
func IsInitialized() bool {
	return PluginCount() > 0
}

// PluginCount returns the number of registered reader modes.
func PluginCount() int {
	return len(plugins.ListEmbeddedPlugins())
}
