package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	pointerPrefix = "tileset_version_"
	pointerSuffix = ".txt"
	// PointerGlob matches the version pointer files in the versions directory.
	PointerGlob = pointerPrefix + "*" + pointerSuffix
)

// Pointer designates the version of an area served under the unversioned path.
type Pointer struct {
	Area    string
	Version string
	File    string
}

// PointerError reports an unusable version pointer file.
type PointerError struct {
	File   string
	Reason string
}

func (e *PointerError) Error() string {
	return fmt.Sprintf("version pointer %s: %s", e.File, e.Reason)
}

// PointerArea extracts the area from a pointer file name: the last
// underscore separated segment of its stem.
func PointerArea(file string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	parts := strings.Split(stem, "_")
	return parts[len(parts)-1]
}

// ReadPointers reads every version pointer file in dir, sorted by file name.
// A missing dir yields no pointers.
func ReadPointers(dir string) ([]Pointer, error) {
	files, err := filepath.Glob(filepath.Join(dir, PointerGlob))
	if err != nil {
		return nil, errors.Wrap(err, "listing version pointers")
	}

	pointers := make([]Pointer, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "reading version pointer")
		}
		version := strings.TrimSpace(string(data))
		if version == "" {
			return nil, &PointerError{File: file, Reason: "empty version"}
		}
		pointers = append(pointers, Pointer{
			Area:    PointerArea(file),
			Version: version,
			File:    file,
		})
	}
	return pointers, nil
}
