package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/One-com/gone/log"
	"github.com/One-com/gone/log/syslog"
	"github.com/spf13/cobra"

	"github.com/One-com/tileroute"
	"github.com/One-com/tileroute/config"
)

var (
	VERSION   = "Not set"
	BUILDTIME = "In the past"
	REVISION  = "Unknown"
)

var (
	configFile string
	envFile    string
	domain     string
	dryrun     bool
	logLevel   int
)

var rootCmd = &cobra.Command{
	Use:   "tileroute",
	Short: "Generate and activate the nginx configuration of the tile host",
	Long: `Scans the tile datasets, derives their tilejson descriptors, renders the
nginx location blocks into the site configuration and reloads nginx.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetLevel(syslog.Priority(logLevel))
		log.SetFlags(log.Llevel | log.Lname)
		log.AutoColoring()

		if envFile != "" {
			return config.LoadEnvFile(envFile)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return tileroute.Main(configFile, options(cmd)...)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := append(options(cmd), tileroute.DumpConfig(true))
		return tileroute.Main(configFile, opts...)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Version:     \t%s\n", VERSION)
		fmt.Printf("Revision:    \t%s\n", REVISION)
		fmt.Printf("Build date:  \t%s\n", BUILDTIME)
		fmt.Printf("Go Compiler: \t%s\n", runtime.Version())
	},
}

func options(cmd *cobra.Command) []tileroute.Option {
	opts := []tileroute.Option{tileroute.DryRun(dryrun)}
	if cmd.Flags().Changed("domain") {
		opts = append(opts, tileroute.Domain(domain))
	}
	return opts
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "tileroute.json", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", "", "Load TILEROUTE_* overrides from this dotenv file")
	rootCmd.PersistentFlags().StringVar(&domain, "domain", "", "Override the configured domain (\"\" disables writing the proxy config)")
	rootCmd.PersistentFlags().IntVarP(&logLevel, "loglevel", "d", int(syslog.LOG_NOTICE), "Syslog loglevel [0..7]")
	rootCmd.Flags().BoolVarP(&dryrun, "dry-run", "n", false, "Print the rendered proxy config instead of writing and activating it")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
