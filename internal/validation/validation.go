// Package validation checks names taken from dataset contents before they
// become file paths. Document names and dataset names come from the input
// files themselves, so a crafted name must not escape the output directory.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// MaxFilenameLength is the longest accepted file name.
	MaxFilenameLength = 255
	// MaxPathLength is the longest accepted relative path.
	MaxPathLength = 4096
)

var (
	ErrPathTraversal   = errors.New("path traversal detected")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrPathTooLong     = errors.New("path too long")
	ErrFilenameTooLong = errors.New("filename too long")
	ErrEmptyPath       = errors.New("path cannot be empty")
)

// SanitizePath resolves name inside baseDir and returns the joined path. It
// rejects absolute names and names that climb out of baseDir.
func SanitizePath(baseDir, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}
	if len(name) > MaxPathLength {
		return "", ErrPathTooLong
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: null byte in %q", ErrInvalidFilename, name)
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: absolute path %q", ErrPathTraversal, name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	if clean == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return filepath.Join(baseDir, clean), nil
}

// ValidateFilename accepts a single path element without separators or
// control characters.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrInvalidFilename
	}
	if len(name) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: reserved name %q", ErrInvalidFilename, name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: path separator in %q", ErrInvalidFilename, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character in %q", ErrInvalidFilename, name)
		}
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q starts with a hyphen", ErrInvalidFilename, name)
	}
	return nil
}

// SanitizeFilename turns name into a usable file name. Separators become
// underscores and control characters are dropped.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimLeft(name, "-")
	if name == "." || name == ".." {
		name = strings.ReplaceAll(name, ".", "_")
	}
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	return name, nil
}
