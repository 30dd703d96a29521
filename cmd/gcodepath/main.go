// gcodepath builds layered toolpaths from G-code programs.
//
// Usage:
//
//	gcodepath [options] FILE...
//	gcodepath --serve [--addr :7130]
//
// Each FILE is parsed into lines, deposition vertices and layers, and a
// summary is printed. With --serve the toolpath service is started instead
// and programs are uploaded over HTTP or the websocket JSON-RPC interface.
//
// Examples:
//
//	# Summarize a program
//	gcodepath part.gcode
//
//	# Machine readable output with the layer table
//	gcodepath --json --layers part.gcode
//
//	# Parse with a progress bar; ctrl+c keeps the partial toolpath
//	gcodepath --progress big.gcode
//
//	# Run the service with settings from a file
//	gcodepath --config gcodepath.cfg --serve
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"gcode-toolpath/pkg/config"
	"gcode-toolpath/pkg/gcodefile"
	"gcode-toolpath/pkg/log"
	"gcode-toolpath/pkg/metrics"
	"gcode-toolpath/pkg/server"
	"gcode-toolpath/pkg/toolpath"
	"gcode-toolpath/pkg/tui"
)

const version = server.Version

type options struct {
	configFile  string
	jsonOut     bool
	layers      bool
	progress    bool
	metrics     bool
	serve       bool
	addr        string
	logLevel    string
	logFile     string
	legacyG92Z  bool
	showVersion bool
}

// fileResult is the --json output for one program.
type fileResult struct {
	File     string               `json:"file"`
	Summary  toolpath.Summary     `json:"summary"`
	Metadata gcodefile.Metadata   `json:"metadata"`
	Canceled bool                 `json:"canceled"`
	Layers   []toolpath.LayerSpan `json:"layers,omitempty"`
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gcodepath [options] FILE...\n\n")
		fmt.Fprintf(os.Stderr, "gcodepath parses G-code programs into layered toolpaths.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gcodepath part.gcode                 # Print a summary\n")
		fmt.Fprintf(os.Stderr, "  gcodepath -j -l part.gcode           # JSON with the layer table\n")
		fmt.Fprintf(os.Stderr, "  gcodepath -p big.gcode               # Progress bar, ctrl+c cancels\n")
		fmt.Fprintf(os.Stderr, "  gcodepath -c gcodepath.cfg --serve   # Run the toolpath service\n")
	}

	var opts options
	pflag.StringVarP(&opts.configFile, "config", "c", "", "Settings file")
	pflag.BoolVarP(&opts.jsonOut, "json", "j", false, "Print results as JSON")
	pflag.BoolVarP(&opts.layers, "layers", "l", false, "List every layer")
	pflag.BoolVarP(&opts.progress, "progress", "p", false, "Show a progress bar while parsing")
	pflag.BoolVarP(&opts.metrics, "metrics", "m", false, "Print parser metrics after the run")
	pflag.BoolVar(&opts.serve, "serve", false, "Run the toolpath service")
	pflag.StringVar(&opts.addr, "addr", "", "Service listen address (overrides [server] addr)")
	pflag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pflag.StringVar(&opts.logFile, "log-file", "", "Write logs to a rotating file")
	pflag.BoolVar(&opts.legacyG92Z, "legacy-g92-z", false, "Offset Z by the Y value on G92")
	pflag.BoolVarP(&opts.showVersion, "version", "V", false, "Print version information")
	help := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}
	if opts.showVersion {
		fmt.Printf("gcodepath %s\n", version)
		return
	}

	if err := run(opts, pflag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, files []string) error {
	settings := config.DefaultSettings()
	if opts.configFile != "" {
		var err error
		if settings, err = config.LoadSettingsFile(opts.configFile); err != nil {
			return err
		}
	}
	if opts.logLevel != "" {
		settings.Log.Level = log.ParseLevel(opts.logLevel)
	}
	if opts.logFile != "" {
		settings.Log.File = opts.logFile
	}
	if opts.addr != "" {
		settings.Server.Addr = opts.addr
	}
	if opts.legacyG92Z {
		settings.GCode.LegacyG92Z = true
	}

	closeLog, err := setupLogging(settings.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	builderOpts := toolpath.DefaultOptions()
	builderOpts.Comment = settings.GCode.CommentChar
	builderOpts.ZTolerance = settings.GCode.ZTolerance
	builderOpts.LegacyG92Z = settings.GCode.LegacyG92Z

	parserMetrics := metrics.NewParserMetrics()
	builderOpts.Metrics = parserMetrics

	if opts.serve {
		return serve(settings.Server, builderOpts, parserMetrics)
	}

	if len(files) == 0 {
		pflag.Usage()
		return fmt.Errorf("no input files")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []fileResult
	for _, path := range files {
		res, err := parseFile(ctx, path, builderOpts, opts.progress)
		if err != nil {
			return err
		}
		if !opts.layers {
			res.Layers = nil
		}
		if opts.jsonOut {
			results = append(results, res.fileResult)
			continue
		}
		printReport(os.Stdout, res, opts.layers)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}
	if opts.metrics {
		fmt.Print(parserMetrics.Gather())
	}
	return nil
}

// setupLogging installs the process logger and returns its cleanup.
func setupLogging(s config.LogSettings) (func(), error) {
	var (
		logger  *log.Logger
		closeFn = func() {}
	)
	if s.File != "" {
		l, writer, err := log.NewFileLogger("gcodepath", s.RotationConfig())
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger = l
		closeFn = func() { writer.Close() }
	} else {
		logger = log.New("gcodepath")
		log.ConfigureFromEnv(logger)
	}
	logger.SetLevel(s.Level)
	logger.SetFormat(s.Format)
	log.SetDefaultLogger(logger)
	return closeFn, nil
}

type parsed struct {
	fileResult
	toolpath *toolpath.Toolpath
}

func parseFile(ctx context.Context, path string, opts toolpath.Options, progress bool) (parsed, error) {
	f, err := gcodefile.Open(path)
	if err != nil {
		return parsed{}, err
	}
	defer f.Close()

	builder := toolpath.NewBuilderWithOptions(f.Bytes(), opts)

	var tp *toolpath.Toolpath
	if progress {
		if tp, err = tui.RunProgress(ctx, path, builder); err != nil {
			return parsed{}, err
		}
	} else {
		tp = builder.Parse(ctx, nil)
	}

	// The toolpath copies line text out of the buffer, so it outlives f.
	return parsed{
		fileResult: fileResult{
			File:     path,
			Summary:  tp.Summary(),
			Metadata: gcodefile.ParseMetadata(f.Bytes()),
			Canceled: builder.Canceled(),
			Layers:   tp.LayerSpans(),
		},
		toolpath: tp,
	}, nil
}

func printReport(w io.Writer, p parsed, layers bool) {
	report := tui.Report{
		Name:     p.File,
		Toolpath: p.toolpath,
		Metadata: p.Metadata,
		Canceled: p.Canceled,
	}
	fmt.Fprintln(w, report.Render())
	if layers {
		fmt.Fprintln(w, tui.RenderLayers(p.toolpath))
	}
}

func serve(s config.ServerSettings, opts toolpath.Options, m *metrics.ParserMetrics) error {
	srv := server.New(server.Config{
		Addr:      s.Addr,
		MaxUpload: int64(s.MaxUploadMB) << 20,
		Options:   opts,
		Metrics:   m,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.GetLogger("gcodepath").Info("received shutdown signal, stopping")
		srv.Stop()
	}()

	return srv.Start()
}
