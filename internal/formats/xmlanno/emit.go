package xmlanno

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/encoding"
	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/validation"
)

// Emit writes ds as an annotation file that Parse reads back. Entity names
// are written with underscores and NIL mentions as <wikiName/>. prob is
// written when the instances carry probabilities.
func Emit(w io.Writer, ds *ir.Dataset) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(bw, "<%s.entityAnnotation>\n", ds.Name)
	for _, inst := range ds.Instances() {
		fmt.Fprintf(bw, "\t<document docName=\"%s\">\n", encoding.EscapeAmp(inst.DocName))
		probs := inst.Fields().Has(ir.FieldProbs)
		for _, s := range inst.Spans() {
			bw.WriteString("\t\t<annotation>\n")
			fmt.Fprintf(bw, "\t\t\t<mention>%s</mention>\n", encoding.EscapeAmp(s.Mention))
			if s.Name == "" {
				bw.WriteString("\t\t\t<wikiName/>\n")
			} else {
				fmt.Fprintf(bw, "\t\t\t<wikiName>%s</wikiName>\n", encoding.EscapeAmp(strings.ReplaceAll(s.Name, " ", "_")))
			}
			fmt.Fprintf(bw, "\t\t\t<offset>%d</offset>\n", s.Start)
			fmt.Fprintf(bw, "\t\t\t<length>%d</length>\n", s.End-s.Start)
			if probs {
				fmt.Fprintf(bw, "\t\t\t<prob>%s</prob>\n", strconv.FormatFloat(s.Prob, 'g', -1, 64))
			}
			bw.WriteString("\t\t</annotation>\n")
		}
		bw.WriteString("\t</document>\n")
	}
	fmt.Fprintf(bw, "</%s.entityAnnotation>\n", ds.Name)
	return bw.Flush()
}

// WriteDir writes ds in the on-disk layout under {root}/{ds.Name}: one raw
// text per document plus the annotation file. Dataset and document names must
// stay inside root.
func WriteDir(root string, ds *ir.Dataset) error {
	if err := validation.ValidateFilename(ds.Name); err != nil {
		return errors.NewConfig("dataset", ds.Name, err.Error())
	}
	dir := filepath.Join(root, ds.Name)
	rawDir := filepath.Join(dir, RawTextDir)
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return errors.NewIO("mkdir", rawDir, err)
	}
	for _, inst := range ds.Instances() {
		p, err := validation.SanitizePath(rawDir, inst.DocName)
		if err != nil {
			return errors.NewConfig("doc_name", inst.DocName, err.Error())
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return errors.NewIO("mkdir", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(encoding.EscapeAmp(inst.Sentence)), 0644); err != nil {
			return errors.NewIO("write", p, err)
		}
	}

	xmlPath := filepath.Join(dir, ds.Name+".xml")
	f, err := os.Create(xmlPath)
	if err != nil {
		return errors.NewIO("create", xmlPath, err)
	}
	if err := Emit(f, ds); err != nil {
		f.Close()
		return errors.NewIO("write", xmlPath, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIO("close", xmlPath, err)
	}
	return nil
}
