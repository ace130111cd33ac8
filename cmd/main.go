// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/term"

	"passport-crosscheck/internal/config"
	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/crosscheck/metrics"
	"passport-crosscheck/internal/help"
	"passport-crosscheck/internal/observability"
	"passport-crosscheck/internal/ocr/tesseract"
	"passport-crosscheck/internal/passport"
	"passport-crosscheck/internal/preprocessors"
	"passport-crosscheck/internal/resilience"
	"passport-crosscheck/internal/version"
	"passport-crosscheck/internal/vlm"
	"passport-crosscheck/internal/web"

	"passport-crosscheck/internal/formatters"
	_ "passport-crosscheck/internal/formatters/csv"
	_ "passport-crosscheck/internal/formatters/json"
	_ "passport-crosscheck/internal/formatters/text"
	_ "passport-crosscheck/internal/formatters/yaml"
)

// Exit codes
const (
	exitOK               = 0
	exitFailure          = 1
	exitUsage            = 2
	exitExtractionFailed = 3
)

const missingTokenMessage = "Error: HF_TOKEN required. Set HF_TOKEN environment variable or use --hf-token option."

// cliFlags holds the parsed command line. set records which flags were
// given explicitly so they override the configuration file.
type cliFlags struct {
	hfToken    string
	mrzTimeout float64
	vlmTimeout float64
	vlmModel   string
	format     string
	output     string
	verbose    bool
	debug      bool
	noColor    bool
	configFile string
	profile    string
	web        bool
	port       int
	version    bool
	help       bool

	set map[string]bool
}

func newFlagSet(f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("crosscheck", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&f.hfToken, "hf-token", "", "Hugging Face API token (default: $HF_TOKEN)")
	fs.Float64Var(&f.mrzTimeout, "mrz-timeout", crosscheck.DefaultMRZTimeout.Seconds(), "MRZ extraction timeout in seconds")
	fs.Float64Var(&f.vlmTimeout, "vlm-timeout", crosscheck.DefaultVLMTimeout.Seconds(), "VLM extraction timeout in seconds")
	fs.StringVar(&f.vlmModel, "vlm-model", "", "VLM model identifier")
	fs.StringVar(&f.format, "format", "", "Output format: text, json, csv, yaml (default: text)")
	fs.StringVar(&f.output, "output", "", "Path to output file (if not specified, output to stdout)")
	fs.BoolVar(&f.verbose, "verbose", false, "Show source errors and processing metadata")
	fs.BoolVar(&f.verbose, "v", false, "Alias for --verbose")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging of each extraction step")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	fs.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML)")
	fs.StringVar(&f.profile, "profile", "", "Profile name to use from config file")
	fs.BoolVar(&f.web, "web", false, "Start web server mode")
	fs.IntVar(&f.port, "port", 8080, "Port for web server")
	fs.BoolVar(&f.version, "version", false, "Show version information")
	fs.BoolVar(&f.help, "help", false, "Show help information")
	return fs
}

// parseArgs parses flags that may appear before or after the image path.
func parseArgs(args []string) (*cliFlags, []string, error) {
	f := &cliFlags{}
	fs := newFlagSet(f)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		// flag stops at "--"; everything after it is positional
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			positional = append(positional, rest...)
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, positional, nil
}

// loadConfiguration resolves file, profile, environment and flags in
// increasing order of precedence.
func loadConfiguration(flags *cliFlags, stderr io.Writer) (*config.Config, error) {
	cfg, err := config.LoadConfigOrDefault(flags.configFile)
	if err != nil {
		if flags.configFile != "" {
			return nil, err
		}
		fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
	}

	if flags.profile != "" {
		if err := cfg.ApplyProfile(flags.profile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if flags.set["hf-token"] {
		cfg.HFToken = strings.TrimSpace(flags.hfToken)
	}
	if flags.set["mrz-timeout"] {
		cfg.CrossCheck.MRZTimeoutSeconds = flags.mrzTimeout
	}
	if flags.set["vlm-timeout"] {
		cfg.CrossCheck.VLMTimeoutSeconds = flags.vlmTimeout
	}
	if flags.set["vlm-model"] {
		cfg.CrossCheck.VLMModel = flags.vlmModel
	}
	if flags.set["format"] {
		cfg.Defaults.Format = flags.format
	}
	if flags.set["verbose"] || flags.set["v"] {
		cfg.Defaults.Verbose = flags.verbose
	}
	if flags.set["debug"] {
		cfg.Defaults.Debug = flags.debug
	}
	if flags.set["no-color"] {
		cfg.Defaults.NoColor = flags.noColor
	}
	if flags.set["port"] {
		cfg.Web.Port = flags.port
	}
	return cfg, nil
}

// buildService wires the OCR engine, the VLM provider and the engine
// configuration into a cross-check service.
func buildService(cfg *config.Config, logger *zap.Logger, observer *observability.StandardObserver, m *metrics.Metrics) (*crosscheck.Service, error) {
	ccConfig, err := cfg.CrossCheckConfig()
	if err != nil {
		return nil, err
	}

	preprocessors.SetResourceLimits(preprocessors.ResourceLimits{
		MaxFileSize: cfg.CrossCheck.MaxImageMB * 1024 * 1024,
		MaxPixels:   cfg.CrossCheck.MaxMegapixels * 1_000_000,
	})

	extractor := passport.NewExtractor(tesseract.New(),
		passport.WithLanguages(cfg.CrossCheck.OCRLanguages...),
		passport.WithLogger(logger),
	)

	retry := resilience.DefaultRetryConfig()
	retry.MaxRetries = cfg.CrossCheck.VLMMaxRetries
	provider, err := vlm.New(ccConfig.HFToken,
		vlm.WithModel(ccConfig.VLMModel),
		vlm.WithBaseURL(cfg.CrossCheck.VLMBaseURL),
		vlm.WithRetry(retry),
		vlm.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return crosscheck.NewService(ccConfig, extractor, provider,
		crosscheck.WithLogger(logger),
		crosscheck.WithObserver(observer),
		crosscheck.WithMetrics(m),
		crosscheck.WithMaxConcurrentOCR(cfg.CrossCheck.MaxConcurrentOCR),
	)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, positional, err := parseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		help.NewSystem(stdout, !isTerminal(stdout)).ShowGeneralHelp()
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\nRun 'crosscheck --help' for usage.\n", err)
		return exitUsage
	}

	if flags.help {
		topic := ""
		if len(positional) > 0 {
			topic = positional[0]
		}
		if !help.NewSystem(stdout, flags.noColor || !isTerminal(stdout)).Show(topic) {
			return exitUsage
		}
		return exitOK
	}
	if flags.version {
		fmt.Fprintln(stdout, version.Info())
		return exitOK
	}

	if err := config.LoadEnv("."); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}
	cfg, err := loadConfiguration(flags, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration Error: %v\n", err)
		return exitUsage
	}
	if _, ok := formatters.Get(cfg.Defaults.Format); !ok {
		fmt.Fprintf(stderr, "Error: unsupported format '%s'. Available formats: %s\n",
			cfg.Defaults.Format, strings.Join(formatters.List(), ", "))
		return exitUsage
	}

	if flags.web {
		return runWeb(ctx, cfg, positional, stderr)
	}
	return runCheck(ctx, cfg, flags.output, positional, stdout, stderr)
}

func runCheck(ctx context.Context, cfg *config.Config, outputFile string, positional []string, stdout, stderr io.Writer) int {
	if len(positional) != 1 {
		fmt.Fprintln(stderr, "Error: expected exactly one image path. Run 'crosscheck --help' for usage.")
		return exitUsage
	}
	imagePath := positional[0]
	if info, err := os.Stat(imagePath); err != nil || info.IsDir() {
		fmt.Fprintf(stderr, "Error: Image file not found: %s\n", imagePath)
		return exitUsage
	}
	if cfg.HFToken == "" {
		fmt.Fprintln(stderr, missingTokenMessage)
		return exitUsage
	}

	logger := zap.NewNop()
	var debugObs *observability.DebugObserver
	observer := observability.NewStandardObserver(observability.LevelFor(false, cfg.Defaults.Verbose), logger)
	if cfg.Defaults.Debug {
		var err error
		if logger, err = observability.NewLogger(true); err != nil {
			fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
			return exitFailure
		}
		defer logger.Sync() //nolint:errcheck
		debugObs = observability.NewDebugObserver(stderr, logger)
		observer = debugObs.StandardObserver
		debugObs.LogDetail("main", fmt.Sprintf("format=%s model=%s mrz_timeout=%s vlm_timeout=%s",
			cfg.Defaults.Format, cfg.CrossCheck.VLMModel, cfg.MRZTimeout(), cfg.VLMTimeout()))
	}

	service, err := buildService(cfg, logger, observer, nil)
	if err != nil {
		if crosscheck.IsConfigurationError(err) {
			fmt.Fprintf(stderr, "Configuration Error: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	finishStep := debugObs.StartStep("main", "cross-check", imagePath)
	result := service.Run(ctx, imagePath)
	finishStep(result.Status != crosscheck.StatusError, string(result.Status))

	noColor := cfg.Defaults.NoColor || os.Getenv("NO_COLOR") != "" || outputFile != "" || !isTerminal(stdout)
	output, err := formatters.Export(cfg.Defaults.Format, result, formatters.FormatterOptions{
		Verbose:         cfg.Defaults.Verbose,
		NoColor:         noColor,
		IncludeMetadata: cfg.Defaults.Verbose,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	if !strings.HasSuffix(output, "\n") {
		output += "\n"
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			fmt.Fprintf(stderr, "Error: failed to write output file: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stderr, "Results written to %s\n", outputFile)
	} else {
		fmt.Fprint(stdout, output)
	}

	if result.Status == crosscheck.StatusError {
		return exitExtractionFailed
	}
	return exitOK
}

func runWeb(ctx context.Context, cfg *config.Config, positional []string, stderr io.Writer) int {
	if len(positional) > 0 {
		fmt.Fprintf(stderr, "Error: --web cannot be used with file arguments\n"+
			"Web mode starts a server - upload files to http://localhost:%d/api/v1/crosscheck\n", cfg.Web.Port)
		return exitUsage
	}
	if cfg.HFToken == "" {
		fmt.Fprintln(stderr, missingTokenMessage)
		return exitUsage
	}

	logger, err := observability.NewLogger(cfg.Defaults.Debug)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
		return exitFailure
	}
	defer logger.Sync() //nolint:errcheck

	observer := observability.NewStandardObserver(observability.LevelFor(cfg.Defaults.Debug, true), logger)
	service, err := buildService(cfg, logger, observer, metrics.New(prometheus.DefaultRegisterer))
	if err != nil {
		fmt.Fprintf(stderr, "Configuration Error: %v\n", err)
		return exitUsage
	}

	server := web.NewServer(service,
		web.WithLogger(logger),
		web.WithGatherer(prometheus.DefaultGatherer),
		web.WithMaxUploadMB(cfg.Web.MaxUploadMB),
		web.WithWriteTimeout(cfg.MRZTimeout()+cfg.VLMTimeout()+30*time.Second),
	)
	if err := server.Start(ctx, cfg.Web.Port); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
