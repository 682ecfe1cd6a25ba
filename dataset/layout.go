package dataset

import (
	"os"
	"path/filepath"
)

// Layout knows where derived run artifacts live.
type Layout struct {
	RunsDir string
}

// RunDir is the pre-existing destination directory of an area/version.
func (l Layout) RunDir(area, version string) string {
	return filepath.Join(l.RunsDir, area, version)
}

// DescriptorPath is where the tilejson descriptor of an area/version is written.
func (l Layout) DescriptorPath(area, version string) string {
	return filepath.Join(l.RunDir(area, version), DescriptorFile)
}

// Eligible reports whether a dataset can be routed: both its run directory
// and its source metadata file must exist. If not, missing names the first
// absent path.
func (l Layout) Eligible(d Dataset) (missing string, ok bool) {
	runDir := l.RunDir(d.Area, d.Version)
	if fi, err := os.Stat(runDir); err != nil || !fi.IsDir() {
		return runDir, false
	}
	meta := d.MetadataPath()
	if fi, err := os.Stat(meta); err != nil || !fi.Mode().IsRegular() {
		return meta, false
	}
	return "", true
}

// DescriptorExists reports whether the descriptor of an area/version is on disk.
func (l Layout) DescriptorExists(area, version string) bool {
	_, err := os.Stat(l.DescriptorPath(area, version))
	return err == nil
}
