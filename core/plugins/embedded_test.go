package plugins

import (
	"testing"

	"github.com/FocuswithJustin/DeepEL/core/ir"
)

// mockFormatHandler is a mock implementation of FormatHandler for testing.
type mockFormatHandler struct {
	format string
}

func (m *mockFormatHandler) Detect(path string) (*DetectResult, error) {
	return &DetectResult{Detected: true, Format: m.format, Reason: "test detection"}, nil
}

func (m *mockFormatHandler) Load(path string, opts Options) (*ir.Dataset, error) {
	return ir.NewDataset(path, m.format), nil
}

func withRegistry(t *testing.T) {
	t.Helper()
	oldRegistry, oldAliases := embeddedRegistry, aliasIndex
	ClearEmbeddedRegistry()
	t.Cleanup(func() {
		embeddedRegistry, aliasIndex = oldRegistry, oldAliases
	})
}

func TestRegisterAndResolve(t *testing.T) {
	withRegistry(t)
	RegisterEmbeddedPlugin(&EmbeddedPlugin{
		Manifest: &Manifest{Mode: "token-tag", Aliases: []string{"tsv"}},
		Format:   &mockFormatHandler{format: "token-tag"},
	})

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"token-tag", "token-tag", true},
		{"tsv", "token-tag", true},
		{" tsv ", "token-tag", true},
		{"csv", "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveMode(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ResolveMode(%q) = %q, %v", tt.name, got, ok)
		}
	}

	p := GetEmbeddedPlugin("tsv")
	if p == nil || p.Manifest.Mode != "token-tag" {
		t.Fatalf("GetEmbeddedPlugin(tsv) = %v", p)
	}
	ds, err := p.Format.Load("x.tsv", DefaultOptions())
	if err != nil || ds.Format != "token-tag" {
		t.Errorf("Load() = %v, %v", ds, err)
	}
	if HasEmbeddedPlugin("csv") {
		t.Error("HasEmbeddedPlugin(csv) should be false")
	}
}

func TestRegisterIgnoresEmptyMode(t *testing.T) {
	withRegistry(t)
	RegisterEmbeddedPlugin(&EmbeddedPlugin{Manifest: &Manifest{}})
	RegisterEmbeddedPlugin(&EmbeddedPlugin{})
	if len(ListEmbeddedPlugins()) != 0 {
		t.Error("plugins without a mode must not be registered")
	}
}

func TestListOrder(t *testing.T) {
	withRegistry(t)
	for _, m := range []*Manifest{
		{Mode: "b"},
		{Mode: "a"},
		{Mode: "c", Priority: 5},
	} {
		RegisterEmbeddedPlugin(&EmbeddedPlugin{Manifest: m, Format: &mockFormatHandler{}})
	}
	list := ListEmbeddedPlugins()
	var modes []string
	for _, p := range list {
		modes = append(modes, p.Manifest.Mode)
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if modes[i] != want[i] {
			t.Fatalf("order = %v, want %v", modes, want)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.ShiftBefore != 10 || opts.ShiftAfter != 100 {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
	if opts.AllowShift || opts.AllowNIL || opts.AllowRepeat {
		t.Error("recovery flags must default to off")
	}
}
