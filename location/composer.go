// Package location composes the proxy location blocks routing URL paths to
// tile datasets and their tilejson descriptors.
//
// The composed text is, in order: one block per eligible dataset in scan
// order, one alias block per version pointer, and the static fallback
// fragment which always comes last.
package location

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/One-com/gone/log"
	"github.com/pkg/errors"

	"github.com/One-com/tileroute/dataset"
)

// Deriver produces the tilejson descriptor of a dataset at dest.
type Deriver interface {
	Derive(ctx context.Context, d dataset.Dataset, dest string) error
}

// AliasTargetError reports a version pointer naming a version whose
// descriptor has not been built.
type AliasTargetError struct {
	Area       string
	Version    string
	Descriptor string
}

func (e *AliasTargetError) Error() string {
	return fmt.Sprintf("latest version %s of %s has no descriptor at %s", e.Version, e.Area, e.Descriptor)
}

// Composer builds the location text from the filesystem.
type Composer struct {
	TilesDir    string // holds the <area>-<version> source directories
	VersionsDir string // holds the version pointer files
	StaticFile  string // fragment appended verbatim after all generated blocks
	Layout      dataset.Layout
	Deriver     Deriver
}

// Result is the outcome of one composition.
type Result struct {
	Text string

	// Hint is a usage hint for the first routed dataset, with
	// DomainPlaceholder standing in for the external domain.
	// Empty if nothing was routed.
	Hint string

	Routed  []dataset.Dataset
	Skipped []dataset.Dataset
	Aliases []dataset.Pointer
}

// Compose scans the datasets, derives the descriptor of every eligible one
// and returns the complete location text. Ineligible datasets are skipped
// with a notice. Any other failure aborts the composition.
func (c *Composer) Compose(ctx context.Context) (*Result, error) {
	res := &Result{}
	var sb strings.Builder

	datasets, err := dataset.Scan(c.TilesDir)
	if err != nil {
		return nil, err
	}

	for _, d := range datasets {
		block, ok, err := c.datasetBlock(ctx, d)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Skipped = append(res.Skipped, d)
			continue
		}
		sb.WriteString(block)
		res.Routed = append(res.Routed, d)

		if res.Hint == "" {
			res.Hint, err = execute(usageHint, blockData{Area: d.Area, Version: d.Version, Domain: DomainPlaceholder})
			if err != nil {
				return nil, err
			}
		}
	}

	pointers, err := dataset.ReadPointers(c.VersionsDir)
	if err != nil {
		return nil, err
	}
	for _, p := range pointers {
		block, err := c.aliasBlock(p)
		if err != nil {
			return nil, err
		}
		sb.WriteString(block)
		res.Aliases = append(res.Aliases, p)
	}

	static, err := os.ReadFile(c.StaticFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading static locations")
	}
	sb.WriteString("\n")
	sb.Write(static)

	res.Text = sb.String()
	return res, nil
}

func (c *Composer) datasetBlock(ctx context.Context, d dataset.Dataset) (block string, ok bool, err error) {
	if missing, eligible := c.Layout.Eligible(d); !eligible {
		log.NOTICE(fmt.Sprintf("%s doesn't exist, skipping", missing), "dataset", d.String())
		return "", false, nil
	}

	descriptor := c.Layout.DescriptorPath(d.Area, d.Version)
	if err = c.Deriver.Derive(ctx, d, descriptor); err != nil {
		return "", false, err
	}

	block, err = execute(versionBlock, blockData{
		Area:       d.Area,
		Version:    d.Version,
		Descriptor: descriptor,
		Tiles:      d.TilesPath(),
	})
	return block, err == nil, err
}

func (c *Composer) aliasBlock(p dataset.Pointer) (string, error) {
	log.INFO(fmt.Sprintf("setting latest version for %s: %s", p.Area, p.Version))

	descriptor := c.Layout.DescriptorPath(p.Area, p.Version)
	if !c.Layout.DescriptorExists(p.Area, p.Version) {
		return "", &AliasTargetError{Area: p.Area, Version: p.Version, Descriptor: descriptor}
	}
	return execute(aliasBlock, blockData{Area: p.Area, Descriptor: descriptor})
}
