package location

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/One-com/gone/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/One-com/tileroute/dataset"
)

func init() {
	log.SetOutput(io.Discard)
}

const staticFragment = `    location @empty_tile {
        return 200 '';
    }
`

// fakeDeriver writes a stub descriptor and records what it was asked for.
type fakeDeriver struct {
	calls []string
	fail  error
}

func (f *fakeDeriver) Derive(ctx context.Context, d dataset.Dataset, dest string) error {
	f.calls = append(f.calls, d.String()+" "+dest)
	if f.fail != nil {
		return f.fail
	}
	return os.WriteFile(dest, []byte(`{"tilejson":"3.0.0"}`), 0o644)
}

type fixture struct {
	tiles, runs, versions string
	composer              *Composer
	deriver               *fakeDeriver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		tiles:    filepath.Join(base, "tiles"),
		runs:     filepath.Join(base, "runs"),
		versions: filepath.Join(base, "config"),
		deriver:  &fakeDeriver{},
	}
	for _, d := range []string{f.tiles, f.runs, f.versions} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	static := filepath.Join(base, "location_static.conf")
	require.NoError(t, os.WriteFile(static, []byte(staticFragment), 0o644))

	f.composer = &Composer{
		TilesDir:    f.tiles,
		VersionsDir: f.versions,
		StaticFile:  static,
		Layout:      dataset.Layout{RunsDir: f.runs},
		Deriver:     f.deriver,
	}
	return f
}

// dataset creates the source directory, and optionally the run directory
// and the metadata file, of area-version.
func (f *fixture) dataset(t *testing.T, area, version string, runDir, metadata bool) string {
	t.Helper()
	src := filepath.Join(f.tiles, area+"-"+version)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "tiles"), 0o755))
	if runDir {
		require.NoError(t, os.MkdirAll(filepath.Join(f.runs, area, version), 0o755))
	}
	if metadata {
		require.NoError(t, os.WriteFile(filepath.Join(src, "metadata.json"), []byte("{}"), 0o644))
	}
	return src
}

func (f *fixture) pointer(t *testing.T, area, version string) {
	t.Helper()
	p := filepath.Join(f.versions, "tileset_version_"+area+".txt")
	require.NoError(t, os.WriteFile(p, []byte(version+"\n"), 0o644))
}

func TestComposeEligibleDataset(t *testing.T) {
	f := newFixture(t)
	src := f.dataset(t, "basemap", "v1", true, true)

	res, err := f.composer.Compose(context.Background())
	require.NoError(t, err)

	descriptor := filepath.Join(f.runs, "basemap", "v1", "tilejson-tiles-org.json")
	assert.Equal(t, []string{"basemap/v1 " + descriptor}, f.deriver.calls)
	assert.Len(t, res.Routed, 1)
	assert.Empty(t, res.Skipped)

	assert.Equal(t, 1, strings.Count(res.Text, "location = /basemap/v1 {"))
	assert.Equal(t, 1, strings.Count(res.Text, "location /basemap/v1/ {"))
	assert.Contains(t, res.Text, "alias "+descriptor+";")
	assert.Contains(t, res.Text, "alias "+filepath.Join(src, "tiles")+"/;")
	assert.Contains(t, res.Text, "try_files $uri @empty_tile;")
	assert.Contains(t, res.Text, "expires 1w;")
	assert.Contains(t, res.Text, "expires 10y;")
	assert.Contains(t, res.Text, "application/vnd.mapbox-vector-tile pbf;")
	assert.Contains(t, res.Text, "add_header Content-Encoding gzip;")
}

func TestComposeSkipsIneligible(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "norun", "v1", false, true)
	f.dataset(t, "nometa", "v1", true, false)

	res, err := f.composer.Compose(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.deriver.calls)
	assert.Empty(t, res.Routed)
	assert.Len(t, res.Skipped, 2)
	assert.NotContains(t, res.Text, "norun")
	assert.NotContains(t, res.Text, "nometa")
	assert.Empty(t, res.Hint)
}

func TestComposeStaticAlwaysLastOnce(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		f := newFixture(t)
		for i := 0; i < n; i++ {
			f.dataset(t, "area", string(rune('a'+i)), true, true)
		}

		res, err := f.composer.Compose(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, strings.Count(res.Text, staticFragment), "datasets: %d", n)
		assert.True(t, strings.HasSuffix(res.Text, "\n"+staticFragment), "datasets: %d", n)
		assert.Len(t, res.Routed, n)
	}
}

func TestComposeAlias(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "A", "v2", true, true)
	f.pointer(t, "A", "v2")

	res, err := f.composer.Compose(context.Background())
	require.NoError(t, err)

	descriptor := filepath.Join(f.runs, "A", "v2", "tilejson-tiles-org.json")
	assert.Equal(t, 1, strings.Count(res.Text, "location = /A {"))
	assert.Contains(t, res.Text, "alias "+descriptor+";       # no trailing slash\n\n        expires 1d;")
	require.Len(t, res.Aliases, 1)
	assert.Equal(t, "v2", res.Aliases[0].Version)
}

func TestComposeAliasToPreviousRun(t *testing.T) {
	f := newFixture(t)
	// The descriptor from an earlier run is enough, the dataset need not be scanned now.
	descriptor := filepath.Join(f.runs, "planet", "v7", "tilejson-tiles-org.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(descriptor), 0o755))
	require.NoError(t, os.WriteFile(descriptor, []byte("{}"), 0o644))
	f.pointer(t, "planet", "v7")

	res, err := f.composer.Compose(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Text, "location = /planet {")
}

func TestComposeAliasTargetMissing(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "A", "v1", true, true)
	f.pointer(t, "A", "v2")

	_, err := f.composer.Compose(context.Background())
	var aerr *AliasTargetError
	require.True(t, errors.As(err, &aerr), "want AliasTargetError, got %v", err)
	assert.Equal(t, "A", aerr.Area)
	assert.Equal(t, "v2", aerr.Version)
}

func TestComposeDeriveFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "basemap", "v1", true, true)
	f.dataset(t, "basemap", "v2", true, true)
	f.deriver.fail = errors.New("converter exploded")

	_, err := f.composer.Compose(context.Background())
	require.Error(t, err)
	assert.Len(t, f.deriver.calls, 1)
}

func TestComposeMalformedNameAborts(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "basemap", "v1", true, true)
	require.NoError(t, os.MkdirAll(filepath.Join(f.tiles, "scratch"), 0o755))

	_, err := f.composer.Compose(context.Background())
	var nerr *dataset.NameError
	require.True(t, errors.As(err, &nerr))
}

func TestComposeMissingStatic(t *testing.T) {
	f := newFixture(t)
	f.composer.StaticFile = filepath.Join(f.tiles, "nope.conf")

	_, err := f.composer.Compose(context.Background())
	assert.Error(t, err)
}

func TestComposeEndToEndOrder(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "basemap", "v1", true, true)
	f.dataset(t, "basemap", "v2", true, true)
	f.pointer(t, "basemap", "v2")

	res, err := f.composer.Compose(context.Background())
	require.NoError(t, err)

	markers := []string{
		"location = /basemap/v1 {",
		"location /basemap/v1/ {",
		"location = /basemap/v2 {",
		"location /basemap/v2/ {",
		"location = /basemap {",
		staticFragment,
	}
	last := -1
	for _, m := range markers {
		i := strings.Index(res.Text, m)
		require.True(t, i > last, "%q out of order", m)
		last = i
	}

	assert.Contains(t, res.Hint, "http://localhost/basemap/v1/14/8529/5975.pbf")
	assert.Contains(t, res.Hint, "https://"+DomainPlaceholder+"/basemap/v1/14/8529/5975.pbf")
}

func TestComposeHintFromFirstEligible(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "aaa", "v1", false, true)
	f.dataset(t, "bbb", "v1", true, true)
	f.dataset(t, "ccc", "v1", true, true)

	res, err := f.composer.Compose(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Hint, "/bbb/v1/")
	assert.NotContains(t, res.Hint, "ccc")
}

func TestComposeIdempotent(t *testing.T) {
	f := newFixture(t)
	f.dataset(t, "basemap", "v1", true, true)
	f.pointer(t, "basemap", "v1")

	first, err := f.composer.Compose(context.Background())
	require.NoError(t, err)
	second, err := f.composer.Compose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}
