package tileroute

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/One-com/gone/log"
	"github.com/One-com/gone/signals"

	"github.com/One-com/tileroute/config"
	"github.com/One-com/tileroute/runner"
)

func init() {
	// Default to a simple systemd compatible log on stdout
	log.Minimal()
}

// loadConfig parses the config from a file name or an in memory buffer and
// applies environment overrides.
func loadConfig(cfgSpec interface{}) (cfg *config.Config, err error) {
	log.INFO("Loading config")
	switch spec := cfgSpec.(type) {
	case string:
		cfg, err = config.ParseConfigFromFile(spec)
	case io.ReadSeeker:
		cfg, err = config.ParseConfigFromReadSeeker(spec)
	default:
		err = config.WrapError(fmt.Errorf("unsupported config source %T", cfgSpec))
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

/**************** SIGNAL HANDLING *******************/

// The cancel function of the generation in progress, if any.
var (
	runLock   sync.Mutex
	runCancel context.CancelFunc
)

func setRunCancel(cancel context.CancelFunc) {
	runLock.Lock()
	runCancel = cancel
	runLock.Unlock()
}

// onSignalInterrupt aborts the generation in progress, killing any external
// command it is waiting for. The proxy is never reloaded after an interrupt.
func onSignalInterrupt() {
	log.Println("Signal Interrupt")
	runLock.Lock()
	defer runLock.Unlock()
	if runCancel != nil {
		runCancel()
	}
}

// onSignalIncLogLevel will increase the log level for the default logger.
func onSignalIncLogLevel() {
	log.IncLevel()
	log.Print(fmt.Sprintf("Log level: %d", log.Level()))
}

// onSignalDecLogLevel will decrease the log level for the default logger.
func onSignalDecLogLevel() {
	log.DecLevel()
	log.Print(fmt.Sprintf("Log level: %d", log.Level()))
}

// HandledSignals is a map (syscall.Signal->func()) defining default
// OS signals to handle and how.
// Change this by assigning to HandledSignals before calling Init() if you need.
// Default signals:
//
//   SIGINT, SIGTERM: Abort the generation. No config is activated.
//   SIGTTIN: Increase log level
//   SIGTTOU: Decrease log level
//
var HandledSignals = signals.Mappings{
	syscall.SIGINT:  onSignalInterrupt,
	syscall.SIGTERM: onSignalInterrupt,
	syscall.SIGTTIN: onSignalIncLogLevel,
	syscall.SIGTTOU: onSignalDecLogLevel,
}

/******************* Options ***********************************/

type runcfg struct {
	dumpconfig bool          // just dump the parsed config and exit.
	dryrun     bool          // print the rendered proxy config instead of activating it.
	domain     *string       // overrides the configured domain
	stdout     io.Writer     // destination of dumps, dry runs and the usage hint
	runner     runner.Runner // runs the converter and the proxy commands
}

// Option to pass to Main()
type Option func(*runcfg)

// DumpConfig makes Main dump the parsed configuration to the output and exit
// without generating anything.
func DumpConfig(dump bool) Option {
	return Option(func(c *runcfg) {
		c.dumpconfig = dump
	})
}

// DryRun makes Main compose the locations and print the rendered proxy
// configuration instead of writing it and reloading the proxy.
// Tilejson descriptors are still derived.
func DryRun(dryrun bool) Option {
	return Option(func(c *runcfg) {
		c.dryrun = dryrun
	})
}

// Domain overrides the configured external domain. "" selects the
// no-op mode where no proxy configuration is written.
func Domain(domain string) Option {
	return Option(func(c *runcfg) {
		c.domain = &domain
	})
}

// Output changes where dumps, dry runs and the usage hint are written.
// Defaults to os.Stdout.
func Output(w io.Writer) Option {
	return Option(func(c *runcfg) {
		c.stdout = w
	})
}

// CommandRunner replaces how the external converter and proxy commands are run.
func CommandRunner(r runner.Runner) Option {
	return Option(func(c *runcfg) {
		c.runner = r
	})
}

/******************* Init logic ********************************/

var initOnce sync.Once

// DisableInit disables the default handling of OS signals.
// You are on your own now to handle signals.
func DisableInit() {
	internalInit(false)
}

// Init starts the signal handler processing HandledSignals.
// If you don't call it, it is called for you by Main().
// If you don't want this, call DisableInit early.
func Init() {
	internalInit(true)
}

func internalInit(doinit bool) {
	initOnce.Do(func() {
		if doinit {
			signals.RunSignalHandler(HandledSignals)
		}
	})
}

// Main generates the proxy configuration described by the config file,
// writes it and activates it by validating and reloading the proxy.
func Main(filename string, opts ...Option) error {

	return tileroutemain(filename, opts...)

}

// tileroutemain takes config as an interface to allow for an in memory buffer during tests
func tileroutemain(cfgSpec interface{}, opts ...Option) error {

	Init()

	rc := runcfg{
		stdout: os.Stdout,
		runner: &runner.Exec{},
	}
	for _, o := range opts {
		o(&rc)
	}

	var filename string
	if f, ok := cfgSpec.(string); ok {
		filename = f
	}

	cfg, err := loadConfig(cfgSpec)
	if err != nil {
		log.CRIT("Error parsing config file", "file", filename, "err", err)
		return err
	}
	if rc.domain != nil {
		cfg.Domain = *rc.domain
	}

	if rc.dumpconfig {
		cfg.Dump(rc.stdout)
		return nil
	}

	if err = cfg.Validate(); err != nil {
		log.CRIT("Invalid config", "file", filename, "err", err)
		return err
	}

	ms := loadMetricsConfig(cfg.Metrics)
	if ms != nil {
		var stop func()
		stop, err = ms.start()
		if err != nil {
			return err
		}
		defer stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	setRunCancel(cancel)
	defer func() {
		setRunCancel(nil)
		cancel()
	}()

	g := NewGenerator(cfg, rc.runner)
	g.Stdout = rc.stdout
	g.DryRun = rc.dryrun

	log.NOTICE("Generating proxy config", "pid", os.Getpid(), "domain", cfg.Domain)

	err = g.Run(ctx)
	if err != nil {
		log.CRIT("Generation failed", "err", err)
		return err
	}

	log.NOTICE("Done")
	return nil
}
