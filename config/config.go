package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/One-com/gone/jconf"
)

type ConfigError error

func WrapError(wrapped error) ConfigError {
	return ConfigError(errors.Wrap(wrapped, "Config error"))
}

// File names expected in TemplateDir.
const (
	BaseTemplateFile    = "cf.conf"
	StaticLocationsFile = "location_static.conf"
)

// ConverterConfig defines the command line prefix of the tilejson converter.
// The converter is called with "--minify <metadata> <destination> <url prefix>" appended.
type ConverterConfig struct {
	Command []string
}

// ProxyConfig defines the commands controlling the running reverse proxy.
type ProxyConfig struct {
	Validate []string
	Reload   []string
}

// MetricsConfig is the global configuration for a statsd server.
type MetricsConfig struct {
	Address     string
	Interval    jconf.Duration
	Prefix      string
	Application string
	Ident       string
}

// Config defines JSON for the top level config
type Config struct {
	TilesDir    string // <area>-<version> dataset directories
	RunsDir     string // <area>/<version>/ tilejson destinations
	VersionsDir string // tileset_version_<area>.txt pointer files
	TemplateDir string // base template and static location fragment
	OutputFile  string // rendered proxy configuration

	// External domain of the tile host. If empty no configuration is written.
	Domain string `json:",omitempty"`

	// Root of the public tile URLs written into the tilejson descriptors.
	PublicURL string

	Converter ConverterConfig
	Proxy     ProxyConfig
	Metrics   *MetricsConfig `json:",omitempty"`
}

// Default returns the configuration used for any value not given in a config file.
func Default() *Config {
	return &Config{
		TilesDir:    "/mnt/ofm",
		RunsDir:     "/data/ofm/http_host/runs",
		VersionsDir: "/data/ofm/config",
		TemplateDir: "/data/ofm/http_host/nginx",
		OutputFile:  "/data/nginx/sites/cf.conf",
		PublicURL:   "https://tiles.openfreemap.org",
		Proxy: ProxyConfig{
			Validate: []string{"nginx", "-t"},
			Reload:   []string{"systemctl", "reload", "nginx"},
		},
	}
}

// BaseTemplate is the path of the proxy configuration template.
func (cfg *Config) BaseTemplate() string {
	return filepath.Join(cfg.TemplateDir, BaseTemplateFile)
}

// StaticLocations is the path of the fragment appended after the generated locations.
func (cfg *Config) StaticLocations() string {
	return filepath.Join(cfg.TemplateDir, StaticLocationsFile)
}

// Validate checks the configuration is usable.
func (cfg *Config) Validate() error {
	if len(cfg.Converter.Command) == 0 {
		return WrapError(errors.New("Converter.Command not set"))
	}
	if cfg.Domain != "" {
		if len(cfg.Proxy.Validate) == 0 || len(cfg.Proxy.Reload) == 0 {
			return WrapError(errors.New("Proxy.Validate and Proxy.Reload must be set"))
		}
	}
	for name, dir := range map[string]string{
		"TilesDir":    cfg.TilesDir,
		"RunsDir":     cfg.RunsDir,
		"VersionsDir": cfg.VersionsDir,
		"TemplateDir": cfg.TemplateDir,
		"OutputFile":  cfg.OutputFile,
	} {
		if dir == "" {
			return WrapError(fmt.Errorf("%s not set", name))
		}
	}
	return nil
}

// Dump serialized the JSON config as configured to standard output
func (cfg *Config) Dump(dest io.Writer) {

	var out bytes.Buffer
	b, err := json.Marshal(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}

	err = json.Indent(&out, b, "", "    ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	_, err = out.Write([]byte("\n"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	out.WriteTo(dest)
}

// ParseConfigFromFile returns a pointer to a new Config object
// after parsing config file content.
func ParseConfigFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseConfig(file)
}

// ParseConfigFromReadSeeker returns a pointer to a new Config object.
// The config is read from a in memory buffer.
func ParseConfigFromReadSeeker(data io.ReadSeeker) (*Config, error) {
	data.Seek(0, io.SeekStart)
	return parseConfig(data)
}

// ParseConfig Read config from the supplied io.Reader and parse it.
// Values not set are taken from Default().
func parseConfig(stream io.Reader) (*Config, error) {
	var config *Config
	err := jconf.ParseInto(stream, &config)
	if err != nil {
		return nil, WrapError(err)
	}
	if config == nil {
		config = &Config{}
	}
	config.applyDefaults(Default())
	return config, nil
}

func (cfg *Config) applyDefaults(def *Config) {
	setString(&cfg.TilesDir, def.TilesDir)
	setString(&cfg.RunsDir, def.RunsDir)
	setString(&cfg.VersionsDir, def.VersionsDir)
	setString(&cfg.TemplateDir, def.TemplateDir)
	setString(&cfg.OutputFile, def.OutputFile)
	setString(&cfg.PublicURL, def.PublicURL)
	if len(cfg.Proxy.Validate) == 0 {
		cfg.Proxy.Validate = def.Proxy.Validate
	}
	if len(cfg.Proxy.Reload) == 0 {
		cfg.Proxy.Reload = def.Proxy.Reload
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// EnvPrefix prefixes the environment variables overriding config values.
const EnvPrefix = "TILEROUTE_"

// ApplyEnv overrides values from TILEROUTE_* environment variables:
// DOMAIN, TILES_DIR, RUNS_DIR, VERSIONS_DIR, TEMPLATE_DIR, OUTPUT_FILE, PUBLIC_URL.
// A variable which is set, even to "", wins. This allows disabling Domain.
func (cfg *Config) ApplyEnv() {
	for name, dst := range map[string]*string{
		"DOMAIN":       &cfg.Domain,
		"TILES_DIR":    &cfg.TilesDir,
		"RUNS_DIR":     &cfg.RunsDir,
		"VERSIONS_DIR": &cfg.VersionsDir,
		"TEMPLATE_DIR": &cfg.TemplateDir,
		"OUTPUT_FILE":  &cfg.OutputFile,
		"PUBLIC_URL":   &cfg.PublicURL,
	} {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
}

// LoadEnvFile sets environment variables from a dotenv file.
// Variables already present in the environment are kept.
func LoadEnvFile(filename string) error {
	if err := godotenv.Load(filename); err != nil {
		return WrapError(err)
	}
	return nil
}
