// Package dispatch maps a mode name to its reader and loads datasets.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
	"github.com/FocuswithJustin/DeepEL/internal/embedded"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

// ParseMode returns the canonical mode for a mode name or alias.
func ParseMode(name string) (string, error) {
	mode, ok := plugins.ResolveMode(name)
	if !ok {
		return "", errors.NewConfig("mode", name, "unknown mode; expected one of "+strings.Join(Modes(), ", "))
	}
	return mode, nil
}

// Modes lists the canonical modes in detection order.
func Modes() []string {
	ps := plugins.ListEmbeddedPlugins()
	modes := make([]string, 0, len(ps))
	for _, p := range ps {
		modes = append(modes, p.Manifest.Mode)
	}
	return modes
}

// Manifests returns the manifest of every registered reader.
func Manifests() []*plugins.Manifest {
	ps := plugins.ListEmbeddedPlugins()
	out := make([]*plugins.Manifest, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Manifest)
	}
	return out
}

// ValidateOptions rejects option values no reader can honor.
func ValidateOptions(opts plugins.Options) error {
	if opts.ShiftBefore < 0 {
		return errors.NewConfig("shift_before", fmt.Sprint(opts.ShiftBefore), "must not be negative")
	}
	if opts.ShiftAfter < 0 {
		return errors.NewConfig("shift_after", fmt.Sprint(opts.ShiftAfter), "must not be negative")
	}
	return nil
}

// Load parses the dataset at path with the reader for mode. Mode and options
// are checked before the path is touched.
func Load(mode, path string, opts plugins.Options) (*ir.Dataset, error) {
	canonical, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	p := plugins.GetEmbeddedPlugin(canonical)
	logging.Debug("loading dataset", "mode", canonical, "path", path)
	return p.Format.Load(path, opts)
}

// Detect returns the first mode, by priority, whose reader recognizes path.
func Detect(path string) (string, error) {
	if !embedded.IsInitialized() {
		return "", errors.NewConfig("mode", "", "no readers registered")
	}
	for _, p := range plugins.ListEmbeddedPlugins() {
		res, err := p.Format.Detect(path)
		if err != nil {
			return "", err
		}
		if res.Detected {
			logging.Debug("format detected", "mode", p.Manifest.Mode, "path", path, "reason", res.Reason)
			return p.Manifest.Mode, nil
		}
	}
	return "", errors.NewNotFound("format", path)
}

// Job names one dataset to load.
type Job struct {
	Mode    string
	Path    string
	Options plugins.Options
}

// Result pairs a job with its dataset.
type Result struct {
	Job     Job
	Dataset *ir.Dataset
}

// LoadAll runs jobs on at most workers goroutines. Every mode is checked up
// front; the first load failure cancels the remaining jobs. Results keep the
// job order.
func LoadAll(ctx context.Context, jobs []Job, workers int) ([]Result, error) {
	for _, j := range jobs {
		if _, err := ParseMode(j.Mode); err != nil {
			return nil, err
		}
		if err := ValidateOptions(j.Options); err != nil {
			return nil, err
		}
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds, err := Load(j.Mode, j.Path, j.Options)
			if err != nil {
				return errors.Wrap(err, j.Path)
			}
			results[i] = Result{Job: j, Dataset: ds}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
