package tileroute

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/One-com/gone/log"
	"github.com/One-com/gone/metric"
	"github.com/One-com/gone/metric/sink/statsd"

	"github.com/One-com/tileroute/config"
	"github.com/One-com/tileroute/location"
)

// Pushes the metrics of a single generation to statsd.
type metricsService struct {
	Addr     string // statsd server to target. "!" means stdout.
	Prefix   string
	Interval time.Duration // how often to push data to statsd
}

func loadMetricsConfig(cfg *config.MetricsConfig) (srv *metricsService) {

	if cfg == nil || cfg.Address == "" {
		return
	}

	app := cfg.Application
	if app == "" {
		app = "tileroute"
	}

	ident := cfg.Ident
	// guess my name if not set.
	if len(ident) == 0 {
		var e error
		ident, e = os.Hostname()
		if e != nil {
			ident = "unknown"
		} else {
			parts := strings.Split(ident, ".")
			ident = parts[0]
		}
	}
	prefix := app + "." + ident
	if cfg.Prefix != "" {
		prefix = cfg.Prefix
	}

	srv = &metricsService{
		Addr:     cfg.Address,
		Prefix:   prefix,
		Interval: cfg.Interval.Duration,
	}

	return
}

// start activates draining metrics to statsd. Calling stop flushes
// everything recorded.
func (ms *metricsService) start() (stop func(), err error) {

	statsd_interval := ms.Interval
	if statsd_interval <= time.Second {
		statsd_interval = time.Second
	}

	var output statsd.Option
	if ms.Addr == "!" {
		output = statsd.Output(os.Stdout)
	} else {
		output = statsd.Peer(ms.Addr)
	}

	sink, err := statsd.New(
		output,
		statsd.Prefix(ms.Prefix),
		statsd.Buffer(1432))
	if err != nil {
		log.ERROR("Error initializing statsd sink", "err", err)
		return
	}

	log.DEBUG("Sending metrics", "prefix", ms.Prefix, "peer", ms.Addr)

	metric.SetDefaultOptions(metric.FlushInterval(statsd_interval))
	metric.SetDefaultSink(sink)
	metric.Start()

	stop = func() {
		metric.Stop() // block until all have flushed
	}
	return
}

type generationMeters struct {
	routed  *metric.Counter
	skipped *metric.Counter
	aliases *metric.Counter
	size    metric.Histogram
}

var (
	metersOnce sync.Once
	meters     *generationMeters
)

func generationMetrics() *generationMeters {
	metersOnce.Do(func() {
		meters = &generationMeters{
			routed:  metric.RegisterCounter("datasets.routed"),
			skipped: metric.RegisterCounter("datasets.skipped"),
			aliases: metric.RegisterCounter("aliases"),
			size:    metric.RegisterHistogram("config.bytes"),
		}
	})
	return meters
}

func recordComposition(res *location.Result) {
	m := generationMetrics()
	for range res.Routed {
		m.routed.Inc(1)
	}
	for range res.Skipped {
		m.skipped.Inc(1)
	}
	for range res.Aliases {
		m.aliases.Inc(1)
	}
}

func recordConfigSize(size int) {
	generationMetrics().size.Sample(int64(size))
}
