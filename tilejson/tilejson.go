// Package tilejson derives the client-facing tilejson descriptor of a dataset
// by running the external metadata converter.
package tilejson

import (
	"context"
	"strings"

	"github.com/One-com/gone/log"
	"github.com/pkg/errors"

	"github.com/One-com/tileroute/dataset"
	"github.com/One-com/tileroute/runner"
)

// MinifyFlag asks the converter for compact output.
const MinifyFlag = "--minify"

// Converter runs the converter command line:
//
//	<Command...> --minify <metadata.json> <destination> <url prefix>
type Converter struct {
	Command   []string // argv prefix, e.g. ["python3", "metadata_to_tilejson.py"]
	PublicURL string   // root of the tile URLs written into the descriptor
	Runner    runner.Runner
}

// URLPrefix is the public URL tiles of area/version are served under.
func (c *Converter) URLPrefix(area, version string) string {
	return strings.TrimRight(c.PublicURL, "/") + "/" + area + "/" + version
}

// Args is the full command line deriving the descriptor of d into dest.
func (c *Converter) Args(d dataset.Dataset, dest string) []string {
	argv := make([]string, 0, len(c.Command)+4)
	argv = append(argv, c.Command...)
	return append(argv, MinifyFlag, d.MetadataPath(), dest, c.URLPrefix(d.Area, d.Version))
}

// Derive writes the descriptor of d to dest, overwriting any previous one.
// The converter must succeed.
func (c *Converter) Derive(ctx context.Context, d dataset.Dataset, dest string) error {
	if len(c.Command) == 0 {
		return errors.New("no tilejson converter command configured")
	}
	log.INFO("Deriving tilejson", "dataset", d.String(), "dest", dest)
	if err := c.Runner.Run(ctx, c.Args(d, dest)); err != nil {
		return errors.Wrapf(err, "deriving tilejson for %s", d)
	}
	return nil
}
