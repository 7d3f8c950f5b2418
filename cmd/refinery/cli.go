package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/refinery"
	"github.com/fwojciec/refinery/refine"
)

// Sinks.
const (
	SinkSQLite = "sqlite"
	SinkDir    = "dir"
)

// Extractors.
const (
	ExtractorHeuristic = "heuristic"
	ExtractorGemini    = "gemini"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Records    refinery.RecordService
	Duplicates refinery.DuplicateStore
	Publisher  refinery.Publisher
	Batch      *refine.Batch
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config kong.ConfigFlag `help:"YAML file with flag defaults"`
	DB     string          `help:"SQLite database path" default:"${default_db}"`
	Sink   string          `help:"Where records are published" enum:"sqlite,dir" default:"sqlite"`
	Out    string          `help:"Output directory for the dir sink" default:"events" type:"path"`
	Debug  bool            `help:"Log every pipeline step to stderr"`

	Run  RunCmd  `cmd:"" help:"Fetch, refine and publish events from URLs"`
	List ListCmd `cmd:"" help:"List published records"`
	Show ShowCmd `cmd:"" help:"Show one published record"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	URLs []string `arg:"" name:"url" help:"Event page URLs"`

	MaxIterations int     `short:"n" default:"3" help:"Maximum extract/validate attempts per URL"`
	Threshold     float64 `default:"0.8" help:"Overall score needed for acceptance"`
	MaxCalls      int     `default:"0" help:"Maximum extractor and validator calls per URL (0 for no limit)"`
	Refresh       bool    `help:"Re-publish records that already exist"`
	DryRun        bool    `help:"Run everything except publishing"`

	Concurrency int             `short:"c" default:"4" help:"URLs processed concurrently"`
	Extractor   string          `short:"e" enum:"heuristic,gemini" default:"heuristic" help:"Extraction strategy"`
	Model       string          `default:"${default_model}" help:"Gemini model for the gemini extractor"`
	Browser     bool            `short:"b" help:"Render pages in headless Chrome"`
	Timeout     time.Duration   `short:"t" default:"10s" help:"Fetch timeout per page"`
	Settle      time.Duration   `default:"0s" help:"Wait for the rendered page to be stable this long (browser only)"`
	StepTimeout time.Duration   `default:"60s" help:"Timeout for each pipeline step"`
	RateLimit   float64         `default:"1" help:"Requests per second per domain"`
	RetryDelays []time.Duration `default:"1s,2s,4s" help:"Backoff delays between fetch retries"`
	CountTokens bool            `help:"Count tokens of fetched content"`
	JSON        bool            `help:"Print results as JSON lines"`

	GeminiAPIKey string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
}

// Options returns the run options selected by flags.
func (c *RunCmd) Options() refinery.RunOptions {
	opts := refinery.DefaultRunOptions()
	opts.MaxIterations = c.MaxIterations
	opts.Policy.Threshold = c.Threshold
	opts.MaxCalls = c.MaxCalls
	opts.Refresh = c.Refresh
	opts.DryRun = c.DryRun
	return opts
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Date   string `help:"Only records on this date (YYYY-MM-DD)"`
	URL    string `help:"Only records with this source URL"`
	Limit  int    `default:"50" help:"Maximum records to list"`
	Offset int    `help:"Records to skip"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID string `arg:"" help:"Record ID"`
}
