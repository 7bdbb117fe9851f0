package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/FocuswithJustin/DeepEL/core/cas"
	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/collab"
	"github.com/FocuswithJustin/DeepEL/internal/dispatch"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
	"github.com/FocuswithJustin/DeepEL/internal/store"
)

// ParseCmd parses one dataset.
type ParseCmd struct {
	Mode  string `arg:"" help:"Reader mode or alias (token-tag/tsv, nif-2015/oke_2015, nif-2016/oke_2016, nif-n3/n3, xml, jsonl-records/jsonl/gendre_jsonl, unseen-mentions/unseen_mentions, auto)"`
	Input string `arg:"" help:"Dataset file" type:"path"`
	Out   string `short:"o" help:"Output file (.json or .json.xz); stdout when empty" type:"path"`

	NoManifest bool   `name:"no-manifest" help:"Do not write a manifest next to the output"`
	Snapshots  string `help:"Content-addressed store that keeps a copy of every output" type:"path"`

	ReaderFlags `embed:""`
}

func (c *ParseCmd) Run(a *app) error {
	ds, err := loadInput(c.Mode, c.Input, c.options(a.cfg))
	if err != nil {
		return err
	}
	if c.Out == "" {
		return store.Encode(a.stdout, ds)
	}
	snapshots := c.Snapshots
	if snapshots == "" {
		snapshots = a.cfg.Output.Snapshots
	}
	return writeOutput(ds, c.Input, c.Out, !c.NoManifest, snapshots)
}

// writeOutput writes ds and, when asked, its manifest and snapshot.
func writeOutput(ds *ir.Dataset, source, out string, manifest bool, snapshots string) error {
	if err := store.WriteDataset(out, ds); err != nil {
		return err
	}
	if !manifest {
		return nil
	}
	m, err := store.NewManifest(ds, source)
	if err != nil {
		return err
	}
	m.Output = out
	if snapshots != "" {
		s, err := cas.NewStore(snapshots)
		if err != nil {
			return err
		}
		if err := store.Snapshot(s, ds, m); err != nil {
			return err
		}
	}
	if err := store.WriteManifest(store.ManifestPath(out), m); err != nil {
		return err
	}
	logging.Info("dataset written", "dataset", ds.Name, "path", out, "digest", m.Digest, "run_id", m.RunID)
	return nil
}

// BatchCmd parses the datasets listed in the config file.
type BatchCmd struct {
	Workers int    `help:"Datasets parsed at once; overrides the config file"`
	OutDir  string `name:"out-dir" help:"Output directory; overrides [output].dir" type:"path"`
}

func (c *BatchCmd) Run(a *app) error {
	cfg := a.cfg
	if len(cfg.Datasets) == 0 {
		return errors.NewConfig("dataset", "", "no [[dataset]] entries; pass --config")
	}
	workers := cfg.Workers
	if c.Workers > 0 {
		workers = c.Workers
	}
	outDir := cfg.Output.Dir
	if c.OutDir != "" {
		outDir = c.OutDir
	}
	if outDir == "" {
		outDir = "."
	}

	jobs := make([]dispatch.Job, len(cfg.Datasets))
	for i, d := range cfg.Datasets {
		jobs[i] = dispatch.Job{Mode: d.Mode, Path: d.Path, Options: cfg.Options(d)}
	}
	start := time.Now()
	results, err := dispatch.LoadAll(a.ctx, jobs, workers)
	if err != nil {
		return err
	}

	for i, r := range results {
		d := cfg.Datasets[i]
		if d.Name != "" {
			r.Dataset.Name = d.Name
		}
		out := d.Output
		if out == "" {
			var err error
			if out, err = outputPath(outDir, r.Dataset.Name, cfg.Output.Compress); err != nil {
				return err
			}
		}
		if err := writeOutput(r.Dataset, d.Path, out, true, cfg.Output.Snapshots); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s\t%s\t%d documents\n", r.Dataset.Name, out, r.Dataset.Len())
	}
	logging.Info("batch finished", "datasets", len(results), "workers", workers, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// StatsCmd prints dataset statistics.
type StatsCmd struct {
	Inputs []string `arg:"" help:"Dataset files (source formats or normalized JSON)" type:"path"`
	Mode   string   `help:"Reader mode; detected when empty, 'dataset' for normalized JSON"`
	JSON   bool     `name:"json" help:"Print JSON instead of a table"`

	ReaderFlags `embed:""`
}

func (c *StatsCmd) Run(a *app) error {
	type row struct {
		Dataset string `json:"dataset"`
		Mode    string `json:"mode"`
		ir.Stats
	}
	rows := make([]row, 0, len(c.Inputs))
	for _, in := range c.Inputs {
		ds, err := loadInput(c.Mode, in, c.options(a.cfg))
		if err != nil {
			return err
		}
		rows = append(rows, row{Dataset: ds.Name, Mode: ds.Format, Stats: ir.ComputeStats(ds)})
	}
	if c.JSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", store.Indent)
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tMODE\tDOCS\tEMPTY\tMENTIONS\tLINKED\tNIL")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n", r.Dataset, r.Mode, r.Documents, r.EmptyDocuments, r.Mentions, r.Entities, r.NILMentions)
	}
	return tw.Flush()
}

// DetectCmd guesses reader modes.
type DetectCmd struct {
	Paths []string `arg:"" help:"Files to inspect" type:"path"`
}

func (c *DetectCmd) Run(a *app) error {
	failed := 0
	for _, p := range c.Paths {
		mode, err := dispatch.Detect(p)
		if err != nil {
			failed++
			fmt.Fprintf(a.stdout, "%s\tunknown\n", p)
			logging.Debug("detection failed", "path", p, "error", err)
			continue
		}
		fmt.Fprintf(a.stdout, "%s\t%s\n", p, mode)
	}
	if failed > 0 {
		return errors.NewNotFound("format", fmt.Sprintf("%d of %d files", failed, len(c.Paths)))
	}
	return nil
}

// ModesCmd lists reader modes.
type ModesCmd struct{}

func (c *ModesCmd) Run(a *app) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tALIASES\tEXTENSIONS\tDESCRIPTION")
	for _, m := range dispatch.Manifests() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Mode, strings.Join(m.Aliases, ","), strings.Join(m.Extensions, ","), m.Description)
	}
	return tw.Flush()
}

// ExportSQLiteCmd loads datasets and exports them into SQLite.
type ExportSQLiteCmd struct {
	DB     string   `arg:"" name:"db" help:"SQLite database file" type:"path"`
	Inputs []string `arg:"" help:"Dataset files (source formats or normalized JSON)" type:"path"`
	Mode   string   `help:"Reader mode; detected when empty, 'dataset' for normalized JSON"`

	ReaderFlags `embed:""`
}

func (c *ExportSQLiteCmd) Run(a *app) error {
	datasets := make([]*ir.Dataset, 0, len(c.Inputs))
	for _, in := range c.Inputs {
		ds, err := loadInput(c.Mode, in, c.options(a.cfg))
		if err != nil {
			return err
		}
		datasets = append(datasets, ds)
	}
	return store.ExportSQLite(a.ctx, c.DB, datasets...)
}

// CandidatesCmd queries a retrieval service for every mention.
type CandidatesCmd struct {
	Input        string `arg:"" help:"Dataset file (source format or normalized JSON)" type:"path"`
	Out          string `short:"o" required:"" help:"Output file; also the resume checkpoint" type:"path"`
	Mode         string `help:"Reader mode; detected when empty"`
	URL          string `name:"url" help:"Retrieval service endpoint; overrides [retrieval].url"`
	TopK         int    `name:"top-k" help:"Candidates per mention; overrides [retrieval].top_k"`
	ContextChars int    `name:"context-chars" help:"Context characters on each side; overrides [retrieval].context_chars"`

	ReaderFlags `embed:""`
}

func (c *CandidatesCmd) Run(a *app) error {
	rc := a.cfg.Retrieval
	if c.URL != "" {
		rc.URL = c.URL
	}
	if c.TopK > 0 {
		rc.TopK = c.TopK
	}
	if c.ContextChars > 0 {
		rc.ContextChars = c.ContextChars
	}
	if rc.URL == "" {
		return errors.NewConfig("retrieval.url", "", "is required")
	}

	ds, err := loadInput(c.Mode, c.Input, c.options(a.cfg))
	if err != nil {
		return err
	}
	ckpt, err := store.OpenCheckpoint(c.Out, ds.Format)
	if err != nil {
		return err
	}
	gen := collab.NewHTTPCandidateGenerator(rc.URL, rc.Timeout.Duration)
	out, err := collab.AttachCandidates(a.ctx, ds, gen, ckpt, collab.CandidateOptions{K: rc.TopK, ContextChars: rc.ContextChars})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%d documents\n", c.Out, out.Len())
	return nil
}

// ValidateCmd checks predicted entities with an LLM.
type ValidateCmd struct {
	Input        string `arg:"" help:"Normalized dataset carrying predictions" type:"existingfile"`
	Out          string `short:"o" required:"" help:"Output file; also the resume checkpoint" type:"path"`
	Field        string `help:"Extra field with predicted entity names aligned with the spans" default:"predict_entity_names"`
	Descriptions string `help:"JSON object mapping entity names to descriptions" type:"existingfile"`
	Model        string `help:"Chat model; overrides [llm].model"`
	BaseURL      string `name:"base-url" help:"OpenAI-compatible endpoint; overrides [llm].base_url"`
}

func (c *ValidateCmd) Run(a *app) error {
	lc := a.cfg.LLM
	if c.Model != "" {
		lc.Model = c.Model
	}
	if c.BaseURL != "" {
		lc.BaseURL = c.BaseURL
	}
	completer, err := collab.NewOpenAICompleter(collab.OpenAIConfig{
		APIKey:  a.cfg.APIKey(),
		BaseURL: lc.BaseURL,
		Model:   lc.Model,
		Timeout: lc.Timeout.Duration,
		Retries: lc.Retries,
		Delay:   lc.Delay.Duration,
	})
	if err != nil {
		return errors.NewConfig("llm.api_key_env", lc.APIKeyEnv, err.Error())
	}

	descriptions := map[string]string{}
	if c.Descriptions != "" {
		data, err := os.ReadFile(c.Descriptions)
		if err != nil {
			return errors.NewIO("read", c.Descriptions, err)
		}
		if err := json.Unmarshal(data, &descriptions); err != nil {
			return errors.NewParsef("json", c.Descriptions, 0, "invalid descriptions: %v", err)
		}
	}

	ds, err := store.ReadDataset(c.Input, "")
	if err != nil {
		return err
	}
	ckpt, err := store.OpenCheckpoint(c.Out, ds.Format)
	if err != nil {
		return err
	}

	var accepted, rejected int
	for _, inst := range ds.Instances() {
		if ckpt.Done(inst.DocName) {
			continue
		}
		if err := a.ctx.Err(); err != nil {
			return err
		}
		var predicted []string
		ok, err := inst.Extra(c.Field, &predicted)
		if err != nil {
			return fmt.Errorf("%s: field %s: %w", inst.DocName, c.Field, err)
		}
		if !ok {
			logging.Warn("no predictions, document copied unchanged", "doc", inst.DocName, "field", c.Field)
		} else {
			verdicts, err := collab.ValidateInstance(a.ctx, completer, inst, predicted, descriptions)
			if err != nil {
				return err
			}
			for _, v := range verdicts {
				if v.Entity == "" {
					continue
				}
				if v.Accepted {
					accepted++
				} else {
					rejected++
				}
			}
		}
		if err := ckpt.Save(inst); err != nil {
			return err
		}
	}
	logging.Info("validation finished", "accepted", accepted, "rejected", rejected, "documents", ckpt.Len())
	fmt.Fprintf(a.stdout, "%s\taccepted=%d\trejected=%d\n", c.Out, accepted, rejected)
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.stdout, "deepel version %s\n", version)
	return nil
}
