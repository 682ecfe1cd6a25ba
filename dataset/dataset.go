// Package dataset discovers the pre-built tile datasets on disk and derives
// the paths the proxy configuration points at.
//
// A dataset lives in a source directory named "<area>-<version>" below the
// tiles root, holding a metadata.json and a tiles/ tree. Its derived tilejson
// descriptor is written to <runs root>/<area>/<version>/.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	// NameSeparator separates area and version in a source directory name.
	NameSeparator = "-"

	MetadataFile   = "metadata.json"
	TilesSubdir    = "tiles"
	DescriptorFile = "tilejson-tiles-org.json"
)

// NameError reports a source directory whose name is not "<area>-<version>".
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("malformed dataset directory name %q: want <area>%s<version>", e.Name, NameSeparator)
}

// Dataset is one version of one area.
type Dataset struct {
	Area    string
	Version string
	Dir     string // source directory
}

// ParseName splits a source directory name into area and version.
// The name must hold exactly one separator with text on both sides.
func ParseName(name string) (area, version string, err error) {
	parts := strings.Split(name, NameSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &NameError{Name: name}
	}
	return parts[0], parts[1], nil
}

// MetadataPath is the dataset's source metadata.json.
func (d Dataset) MetadataPath() string {
	return filepath.Join(d.Dir, MetadataFile)
}

// TilesPath is the directory tile requests are resolved under.
func (d Dataset) TilesPath() string {
	return filepath.Join(d.Dir, TilesSubdir)
}

func (d Dataset) String() string {
	return d.Area + "/" + d.Version
}

// Scan lists the datasets in the immediate subdirectories of root, in
// directory listing order (sorted by name). Non-directories are ignored.
// Any subdirectory with a malformed name fails the whole scan.
func Scan(root string) ([]Dataset, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, "scanning tiles directory")
	}

	var datasets []Dataset
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if !isDir(dir, e) {
			continue
		}
		area, version, err := ParseName(e.Name())
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, Dataset{Area: area, Version: version, Dir: dir})
	}
	return datasets, nil
}

// isDir follows symlinks, so a linked dataset directory is still a dataset.
func isDir(path string, e os.DirEntry) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return e.IsDir()
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
