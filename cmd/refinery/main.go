package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/fs"
	"github.com/fwojciec/refinery/gemini"
	"github.com/fwojciec/refinery/goquery"
	"github.com/fwojciec/refinery/heuristic"
	"github.com/fwojciec/refinery/htmltomarkdown"
	refineryhttp "github.com/fwojciec/refinery/http"
	"github.com/fwojciec/refinery/quality"
	"github.com/fwojciec/refinery/readability"
	"github.com/fwojciec/refinery/refine"
	"github.com/fwojciec/refinery/rod"
	"github.com/fwojciec/refinery/scrape"
	refslog "github.com/fwojciec/refinery/slog"
	"github.com/fwojciec/refinery/sqlite"
	"github.com/fwojciec/refinery/trafilatura"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by the sqlite sink.
	DB *sqlite.DB

	// Fetcher replaces the HTTP and browser fetchers when set.
	// Set before calling Run().
	Fetcher refinery.Fetcher

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var firstErr error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.closers = nil
	if m.DB != nil {
		if err := m.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.DB = nil
	}
	return firstErr
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("refinery"),
		kong.Description("Extract, validate and publish structured event records from web pages"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
		kong.Configuration(YAMLLoader),
		kong.Vars{
			"default_db":    defaultDBPath(),
			"default_model": gemini.DefaultModel,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'refinery --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	deps.Logger = newLogger(stderr, cli.Debug)

	switch cli.Sink {
	case SinkDir:
		store := fs.NewRecordStore(cli.Out)
		deps.Records = store
		deps.Duplicates = store
		deps.Publisher = store
	default:
		m.DB = sqlite.NewDB(cli.DB)
		if err := m.DB.Open(); err != nil {
			m.DB = nil
			fmt.Fprintf(stderr, "Hint: Set REFINERY_DB to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
		}
		svc := sqlite.NewRecordService(m.DB)
		deps.Records = svc
		deps.Duplicates = svc
		deps.Publisher = svc
	}
	defer m.Close()

	if strings.HasPrefix(kongCtx.Command(), "run") {
		batch, err := m.newBatch(ctx, cli, deps)
		if err != nil {
			return err
		}
		deps.Batch = batch
	}

	return kongCtx.Run(deps)
}

// newBatch wires the fetch, refine and publish pipeline for the run command.
func (m *Main) newBatch(ctx context.Context, cli *CLI, deps *Dependencies) (*refine.Batch, error) {
	run := &cli.Run

	fetcher := m.Fetcher
	if fetcher == nil {
		if run.Browser {
			f, err := rod.NewFetcher(rod.WithTimeout(run.Timeout), rod.WithSettle(run.Settle))
			if err != nil {
				fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed")
				return nil, fmt.Errorf("failed to start browser: %w", err)
			}
			fetcher = f
		} else {
			fetcher = refineryhttp.NewFetcher(refineryhttp.WithTimeout(run.Timeout))
		}
		m.closers = append(m.closers, fetcher)
	}

	var extractor refinery.Extractor
	var tokens refinery.TokenCounter
	switch run.Extractor {
	case ExtractorGemini:
		if run.GeminiAPIKey == "" {
			fmt.Fprintln(deps.Stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  run.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		extractor = gemini.NewExtractor(client.Models, gemini.WithModel(run.Model))
	default:
		extractor = heuristic.NewExtractor(nil)
	}
	if run.CountTokens {
		tc, err := gemini.NewTokenCounter(tokenizerModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create token counter: %w", err)
		}
		tokens = tc
	}

	var validator refinery.Validator = quality.NewValidator()
	duplicates, publisher := deps.Duplicates, deps.Publisher
	if cli.Debug {
		fetcher = refslog.NewLoggingFetcher(fetcher, deps.Logger)
		extractor = refslog.NewLoggingExtractor(extractor, deps.Logger)
		validator = refslog.NewLoggingValidator(validator, deps.Logger)
		duplicates = refslog.NewLoggingDuplicateStore(duplicates, deps.Logger)
		publisher = refslog.NewLoggingPublisher(publisher, deps.Logger)
	}

	var content refinery.ContentFetcher = &scrape.Fetcher{
		Fetcher:   fetcher,
		Converter: htmltomarkdown.NewConverter(),
		Extractors: []refinery.ContentExtractor{
			trafilatura.NewExtractor(),
			readability.NewExtractor(),
		},
		Metadata:    goquery.NewMetadataReader(),
		RateLimiter: scrape.NewDomainLimiter(run.RateLimit, 1),
		RetryDelays: run.RetryDelays,
		Logger:      deps.Logger,
	}
	if cli.Debug {
		content = refslog.NewLoggingContentFetcher(content, deps.Logger)
	}

	pipeline := &refine.Pipeline{
		Fetcher: content,
		Controller: &refine.Controller{
			Extractor:   extractor,
			Validator:   validator,
			StepTimeout: run.StepTimeout,
		},
		Duplicates:   duplicates,
		Publisher:    publisher,
		TokenCounter: tokens,
		StepTimeout:  run.StepTimeout,
	}

	return &refine.Batch{Runner: pipeline, Concurrency: run.Concurrency}, nil
}

// tokenizerModel is used for token counting. The local tokenizer does not
// know every generation model, so counting uses a fixed supported one.
const tokenizerModel = "gemini-2.5-flash"

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func defaultDBPath() string {
	if path := os.Getenv("REFINERY_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "refinery.db"
	}
	dir := filepath.Join(home, ".refinery")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "refinery.db")
}
