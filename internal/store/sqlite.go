package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/core/sqlite"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	dataset  TEXT NOT NULL,
	doc_name TEXT NOT NULL,
	format   TEXT NOT NULL,
	sentence TEXT NOT NULL,
	PRIMARY KEY (dataset, doc_name)
);
CREATE TABLE IF NOT EXISTS spans (
	dataset      TEXT NOT NULL,
	doc_name     TEXT NOT NULL,
	idx          INTEGER NOT NULL,
	start_char   INTEGER NOT NULL,
	end_char     INTEGER NOT NULL,
	mention      TEXT NOT NULL,
	entity       TEXT,
	wikipedia_id INTEGER,
	prob         REAL,
	candidates   TEXT,
	PRIMARY KEY (dataset, doc_name, idx),
	FOREIGN KEY (dataset, doc_name) REFERENCES documents (dataset, doc_name) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS spans_entity ON spans (entity);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// ExportSQLite writes datasets into the SQLite database at path. A dataset
// already present under the same name is replaced. NIL mentions store a NULL
// entity.
func ExportSQLite(ctx context.Context, path string, datasets ...*ir.Dataset) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return errors.NewIO("open", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := writeMeta(ctx, tx, sqlite.GetInfo()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	for _, ds := range datasets {
		if err := exportDataset(ctx, tx, ds); err != nil {
			return fmt.Errorf("export %s: %w", ds.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logging.Info("exported datasets", "path", path, "datasets", len(datasets))
	return nil
}

// writeMeta records which driver produced the database.
func writeMeta(ctx context.Context, tx *sql.Tx, info sqlite.Info) error {
	for _, kv := range [][2]string{
		{"driver_name", info.DriverName},
		{"driver_package", info.Package},
	} {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func exportDataset(ctx context.Context, tx *sql.Tx, ds *ir.Dataset) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE dataset = ?`, ds.Name); err != nil {
		return err
	}
	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (dataset, doc_name, format, sentence) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer docStmt.Close()
	spanStmt, err := tx.PrepareContext(ctx, `INSERT INTO spans
		(dataset, doc_name, idx, start_char, end_char, mention, entity, wikipedia_id, prob, candidates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer spanStmt.Close()

	for _, inst := range ds.Instances() {
		if _, err := docStmt.ExecContext(ctx, ds.Name, inst.DocName, ds.Format, inst.Sentence); err != nil {
			return err
		}
		fields := inst.Fields()
		for i, s := range inst.Spans() {
			var entity, wikiID, prob, cands any
			if !s.IsNIL() {
				entity = s.Name
			}
			if fields.Has(ir.FieldWikipediaIDs) {
				wikiID = s.WikipediaID
			}
			if fields.Has(ir.FieldProbs) {
				prob = s.Prob
			}
			if fields.Has(ir.FieldCandidates) {
				data, err := json.Marshal(s.Candidates)
				if err != nil {
					return err
				}
				cands = string(data)
			}
			if _, err := spanStmt.ExecContext(ctx, ds.Name, inst.DocName, i, s.Start, s.End, s.Mention, entity, wikiID, prob, cands); err != nil {
				return err
			}
		}
	}
	return nil
}
