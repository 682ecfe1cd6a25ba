package tileroute

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/One-com/gone/log"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/One-com/tileroute/config"
	"github.com/One-com/tileroute/dataset"
	"github.com/One-com/tileroute/location"
	"github.com/One-com/tileroute/runner"
	"github.com/One-com/tileroute/tilejson"
)

// LocationsPlaceholder is replaced by the composed location blocks in the base template.
const LocationsPlaceholder = "__LOCATION_BLOCKS__"

// Render substitutes the location text and then the domain into the base
// template. The domain is substituted last, so domain placeholders inside
// the location text (e.g. in the static fragment) are resolved too.
func Render(template, locations, domain string) string {
	out := strings.ReplaceAll(template, LocationsPlaceholder, locations)
	return strings.ReplaceAll(out, location.DomainPlaceholder, domain)
}

// Generator runs one complete generation: compose, render, write, activate.
type Generator struct {
	Config   *config.Config
	Composer *location.Composer
	Proxy    *proxyControl
	Stdout   io.Writer // receives the usage hint, or the rendered config on a dry run
	DryRun   bool
}

// NewGenerator wires the components for cfg. Both the tilejson converter and
// the proxy commands are run by r.
func NewGenerator(cfg *config.Config, r runner.Runner) *Generator {
	return &Generator{
		Config: cfg,
		Composer: &location.Composer{
			TilesDir:    cfg.TilesDir,
			VersionsDir: cfg.VersionsDir,
			StaticFile:  cfg.StaticLocations(),
			Layout:      dataset.Layout{RunsDir: cfg.RunsDir},
			Deriver: &tilejson.Converter{
				Command:   cfg.Converter.Command,
				PublicURL: cfg.PublicURL,
				Runner:    r,
			},
		},
		Proxy: &proxyControl{
			validate: cfg.Proxy.Validate,
			reload:   cfg.Proxy.Reload,
			runner:   r,
		},
		Stdout: os.Stdout,
	}
}

// Run composes the locations and, if a domain is configured, writes the
// rendered configuration and activates it. Without a domain nothing is
// written and the proxy is left alone.
// Any error aborts the run before the proxy is reloaded.
func (g *Generator) Run(ctx context.Context) error {

	res, err := g.Composer.Compose(ctx)
	if err != nil {
		return err
	}
	recordComposition(res)
	log.INFO("Locations composed", "routed", len(res.Routed), "skipped", len(res.Skipped), "aliases", len(res.Aliases))

	domain := g.Config.Domain
	if domain == "" {
		log.NOTICE("No domain configured, not writing proxy config")
		return nil
	}

	tmpl, err := os.ReadFile(g.Config.BaseTemplate())
	if err != nil {
		return errors.Wrap(err, "reading base template")
	}
	rendered := Render(string(tmpl), res.Text, domain)
	recordConfigSize(len(rendered))

	if g.DryRun {
		_, err = io.WriteString(g.Stdout, rendered)
		return err
	}

	if err = os.WriteFile(g.Config.OutputFile, []byte(rendered), 0o644); err != nil {
		return errors.Wrap(err, "writing proxy config")
	}
	log.NOTICE("Proxy config written", "file", g.Config.OutputFile, "size", humanize.Bytes(uint64(len(rendered))))

	if err = g.Proxy.Activate(ctx); err != nil {
		return err
	}

	if res.Hint != "" {
		fmt.Fprintln(g.Stdout, strings.ReplaceAll(res.Hint, location.DomainPlaceholder, domain))
	}
	return nil
}
