package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"gscconsolidate/internal/config"
	"gscconsolidate/internal/datasource/searchconsole"
	"gscconsolidate/internal/dataprocessing"
	"gscconsolidate/internal/files"
	"gscconsolidate/internal/infrastructure"
	"gscconsolidate/internal/services"
	"gscconsolidate/pkg/contracts"
	"gscconsolidate/pkg/contracts/domain"
)

// options holds the parsed command line
type options struct {
	inputs     []string
	outDir     string
	configPath string
	minClicks  int
	format     string
	workers    int
	preview    bool
	version    bool
	site       string
	start      string
	end        string

	// set records the flags given explicitly, which override the config
	set map[string]bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "consolidate: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "consolidate: %v\n", err)
		return 1
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "consolidate: %v\n", err)
		return 1
	}

	logger := infrastructure.NewLogger(cfg.Logging, stderr)
	slog.SetDefault(logger)
	ctx = infrastructure.EnsureTraceID(ctx)

	svc := services.NewConsolidationService(cfg.Consolidation, nil, nil, logger)
	req := svc.DefaultRequest()

	if opts.site != "" {
		outcome, err := runSearchConsole(ctx, cfg, opts, svc, req, logger)
		if err != nil {
			logger.ErrorContext(ctx, "Search Console consolidation failed", slog.String("site", opts.site), slog.String("error", err.Error()))
			return 1
		}
		printOutcomes(stdout, []*services.Outcome{outcome}, opts.preview, svc.Summarizer())
		return 0
	}

	outcomes, failed := runFiles(ctx, cfg, opts, svc, req, logger)
	printOutcomes(stdout, outcomes, opts.preview, svc.Summarizer())
	if failed {
		logger.ErrorContext(ctx, "one or more inputs could not be consolidated")
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("consolidate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	in := fs.String("in", "", "input file or directory; several may be given as a comma separated list")
	opts := &options{set: make(map[string]bool)}
	fs.StringVar(&opts.outDir, "out", "", "output directory (defaults to the directory of each input)")
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.IntVar(&opts.minClicks, "min-clicks", 0, "minimum clicks for a keyword to be listed")
	fs.StringVar(&opts.format, "format", "", "output format: csv or xlsx (defaults to the configured format)")
	fs.IntVar(&opts.workers, "workers", 0, "files consolidated concurrently (defaults to the configured value)")
	fs.BoolVar(&opts.preview, "preview", false, "print the first rows of each result")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")
	fs.StringVar(&opts.site, "site", "", "Search Console property, e.g. sc-domain:example.com")
	fs.StringVar(&opts.start, "start", "", "Search Console start date (YYYY-MM-DD)")
	fs.StringVar(&opts.end, "end", "", "Search Console end date (YYYY-MM-DD)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	opts.inputs = append(splitList(*in), fs.Args()...)
	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	if opts.version {
		return opts, nil
	}

	switch {
	case opts.site != "" && len(opts.inputs) > 0:
		return nil, errors.New("-site cannot be combined with input files")
	case opts.site == "" && len(opts.inputs) == 0:
		return nil, errors.New("no input: pass -in or -site")
	case opts.site == "" && (opts.start != "" || opts.end != ""):
		return nil, errors.New("-start and -end require -site")
	case opts.minClicks < 0:
		return nil, fmt.Errorf("-min-clicks must be >= 0, got %d", opts.minClicks)
	case opts.set["workers"] && opts.workers < 1:
		return nil, fmt.Errorf("-workers must be >= 1, got %d", opts.workers)
	}
	return opts, nil
}

// splitList splits a comma separated flag value and drops blank entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.set["min-clicks"] {
		cfg.Consolidation.MinClicks = opts.minClicks
	}
	if opts.format != "" {
		cfg.Consolidation.OutputFormat = opts.format
	}
	if opts.set["workers"] {
		cfg.Consolidation.Workers = opts.workers
	}
}

// runFiles consolidates every discovered input with at most Workers runs in
// flight. A failing file does not stop the others.
func runFiles(ctx context.Context, cfg *config.Config, opts *options, svc *services.ConsolidationService, req services.Request, logger *slog.Logger) ([]*services.Outcome, bool) {
	inputs, err := files.NewDiscovery("").FindInputs(opts.inputs)
	if err != nil {
		logger.ErrorContext(ctx, "failed to discover inputs", slog.String("error", err.Error()))
		return nil, true
	}
	if len(inputs) == 0 {
		logger.WarnContext(ctx, "no input files found", slog.Any("paths", opts.inputs))
		return nil, false
	}

	outcomes := make([]*services.Outcome, len(inputs))
	var (
		mu     sync.Mutex
		failed bool
	)

	g := new(errgroup.Group)
	g.SetLimit(cfg.Consolidation.Workers)
	for i, input := range inputs {
		g.Go(func() error {
			outcome, err := svc.ConsolidateFile(ctx, input.Path, opts.outDir, req)
			if err != nil {
				logger.ErrorContext(ctx, "file consolidation failed",
					slog.String("file", input.Path),
					slog.String("error", err.Error()))
				mu.Lock()
				failed = true
				mu.Unlock()
				return nil
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()

	done := outcomes[:0]
	for _, o := range outcomes {
		if o != nil {
			done = append(done, o)
		}
	}
	return done, failed
}

func runSearchConsole(ctx context.Context, cfg *config.Config, opts *options, svc *services.ConsolidationService, req services.Request, logger *slog.Logger) (*services.Outcome, error) {
	q := searchconsole.Query{SiteURL: opts.site, StartDate: opts.start, EndDate: opts.end}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sc := cfg.SearchConsole
	client, err := searchconsole.NewClient(ctx, searchconsole.Config{
		CredentialsFile: sc.CredentialsFile,
		RowLimit:        sc.RowLimit,
		SearchType:      sc.SearchType,
		Endpoint:        sc.Endpoint,
	}, logger)
	if err != nil {
		return nil, err
	}

	outDir := opts.outDir
	if outDir == "" {
		paths, err := cfg.Paths.Resolved()
		if err != nil {
			return nil, err
		}
		outDir = paths.OutputDir
	}
	return svc.ConsolidateSearchConsole(ctx, client, q, outDir, req)
}

func printOutcomes(w io.Writer, outcomes []*services.Outcome, preview bool, summarizer *dataprocessing.Summarizer) {
	for _, o := range outcomes {
		stats := o.Result.Stats
		fmt.Fprintf(w, "%s -> %s\n", o.Source, o.OutputPath)
		fmt.Fprintf(w, "  pages: %d  keywords: %d  clicks: %s  impressions: %s  (%s, %s)\n",
			stats.Pages,
			stats.KeywordsBefore,
			dataprocessing.FormatNumber(stats.TotalClicks),
			dataprocessing.FormatNumber(stats.TotalImpressions),
			o.Result.Mapping.Strategy,
			o.Duration.Round(time.Millisecond),
		)
		if summary := dataprocessing.FilterSummary(stats); summary != "" {
			fmt.Fprintf(w, "  %s\n", summary)
		}
		if preview {
			printPreview(w, summarizer.Preview(o.Result.Rows))
		}
	}
}

// printPreview renders rows as an aligned table, one line per page
func printPreview(w io.Writer, rows []domain.OutputRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (no rows)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  "+strings.Join(domain.OutputColumns, "\t"))
	for _, record := range dataprocessing.Records(rows) {
		for i, cell := range record {
			record[i] = strings.ReplaceAll(cell, "\n", ", ")
		}
		fmt.Fprintln(tw, "  "+strings.Join(record, "\t"))
	}
	_ = tw.Flush()
}
