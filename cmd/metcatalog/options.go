package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"metcatalog/internal/config"
)

type options struct {
	ConfigPath    string
	Verbose       bool
	JSONLogs      bool
	MetricsAddr   string
	Nationalities string
}

func parseOptions(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("metcatalog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a TOML or YAML configuration file")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to a TOML or YAML configuration file")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&opts.JSONLogs, "json", false, "Log as JSON")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	fs.StringVar(&opts.Nationalities, "nationalities", "", "Path to the nationality list")

	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("%w\n\n%s", err, usage(fs))
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s\n\n%s", strings.Join(fs.Args(), " "), usage(fs))
	}
	return opts, nil
}

// apply overrides file settings with the flags that were given.
func (o options) apply(cfg *config.Config) {
	if o.Verbose {
		cfg.Logging.Verbose = true
	}
	if o.JSONLogs {
		cfg.Logging.JSON = true
	}
	if o.MetricsAddr != "" {
		cfg.Metrics.Addr = o.MetricsAddr
	}
	if o.Nationalities != "" {
		cfg.NationalitiesFile = o.Nationalities
	}
}

func usage(fs *flag.FlagSet) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
