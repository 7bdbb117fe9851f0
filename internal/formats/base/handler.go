// Package base provides common functionality for dataset format readers:
// detection by extension and content, and line-oriented input.
package base

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/DeepEL/core/errors"
	"github.com/FocuswithJustin/DeepEL/core/plugins"
)

// DefaultSniffBytes is how much of a file content detection reads.
const DefaultSniffBytes = 64 * 1024

// MaxLineBytes bounds a single input line. NIF and XML corpora carry whole
// documents on one line.
const MaxLineBytes = 64 * 1024 * 1024

// DetectConfig contains configuration for format detection.
type DetectConfig struct {
	// Extensions is a list of valid file extensions (e.g., ".tsv", ".ttl")
	Extensions []string
	// ContentMarkers are strings that must all be present in the sniffed content
	ContentMarkers []string
	// ExcludeMarkers are strings whose presence rules the format out
	ExcludeMarkers []string
	// FormatName is the name to return in DetectResult
	FormatName string
	// RequireContent rejects an extension match whose content has no markers
	RequireContent bool
	// SniffBytes limits how much content is read; 0 means DefaultSniffBytes
	SniffBytes int
	// CustomValidator is an optional function for additional validation
	CustomValidator func(path string, head []byte) (bool, string)
}

// DetectFile performs common file detection logic.
// It checks if the path exists, is a file, has the right extension,
// and validates the first SniffBytes of content.
func DetectFile(path string, config DetectConfig) (*plugins.DetectResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return &plugins.DetectResult{
			Detected: false,
			Reason:   fmt.Sprintf("cannot stat: %v", err),
		}, nil
	}
	if info.IsDir() {
		return &plugins.DetectResult{
			Detected: false,
			Reason:   "path is a directory, not a file",
		}, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	extensionMatch := false
	for _, validExt := range config.Extensions {
		if ext == strings.ToLower(validExt) {
			extensionMatch = true
			break
		}
	}

	head, err := sniff(path, config.SniffBytes)
	if err != nil {
		return &plugins.DetectResult{
			Detected: false,
			Reason:   fmt.Sprintf("cannot read: %v", err),
		}, nil
	}
	content := string(head)

	for _, marker := range config.ExcludeMarkers {
		if strings.Contains(content, marker) {
			return &plugins.DetectResult{
				Detected: false,
				Reason:   fmt.Sprintf("%q marks another format", marker),
			}, nil
		}
	}

	if len(config.ContentMarkers) > 0 {
		allMarkersFound := true
		for _, marker := range config.ContentMarkers {
			if !strings.Contains(content, marker) {
				allMarkersFound = false
				break
			}
		}
		if allMarkersFound {
			return &plugins.DetectResult{
				Detected: true,
				Format:   config.FormatName,
				Reason:   fmt.Sprintf("%s markers detected", config.FormatName),
			}, nil
		}
	}

	if config.CustomValidator != nil {
		if detected, reason := config.CustomValidator(path, head); detected {
			return &plugins.DetectResult{
				Detected: true,
				Format:   config.FormatName,
				Reason:   reason,
			}, nil
		}
	}

	if extensionMatch && !config.RequireContent {
		return &plugins.DetectResult{
			Detected: true,
			Format:   config.FormatName,
			Reason:   fmt.Sprintf("%s file extension detected", config.FormatName),
		}, nil
	}

	return &plugins.DetectResult{
		Detected: false,
		Reason:   fmt.Sprintf("not a %s file", config.FormatName),
	}, nil
}

func sniff(path string, n int) ([]byte, error) {
	if n <= 0 {
		n = DefaultSniffBytes
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

// FirstLine returns the first line of head without its line ending.
func FirstLine(head []byte) string {
	s := string(head)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r")
}

// OpenFile opens path for reading, reporting failures as IOError.
func OpenFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("file", path)
		}
		return nil, errors.NewIO("open", path, err)
	}
	return f, nil
}

// LineReader yields lines with their 1-based numbers. Line endings ("\n" or
// "\r\n") are stripped.
type LineReader struct {
	scanner *bufio.Scanner
	line    int
	path    string
}

// NewLineReader creates a LineReader over r. path is used in errors.
func NewLineReader(r io.Reader, path string) *LineReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return &LineReader{scanner: scanner, path: path}
}

// Next advances to the next line.
func (lr *LineReader) Next() bool {
	if !lr.scanner.Scan() {
		return false
	}
	lr.line++
	return true
}

// Text returns the current line.
func (lr *LineReader) Text() string {
	return lr.scanner.Text()
}

// Line returns the current line number.
func (lr *LineReader) Line() int {
	return lr.line
}

// Err returns the first read error, as an IOError.
func (lr *LineReader) Err() error {
	if err := lr.scanner.Err(); err != nil {
		return errors.NewIO("read", lr.path, err)
	}
	return nil
}
