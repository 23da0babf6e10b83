package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/bug-warden/internal/analysis"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/jobs"
	"github.com/sevigo/bug-warden/internal/util"
	"github.com/sevigo/bug-warden/internal/wire"
)

var (
	verbose       bool
	reportPath    string
	sourceRoot    string
	knowledgePath string
	scriptDir     string
	outputFormat  string
	outDir        string
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgWhite)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find the code most likely responsible for a bug report",
	Long: `Find the code most likely responsible for a bug report.

The analyze command chunks the source tree, extracts bug signals from the report,
pre-filters chunks by keyword and knowledge overlap, asks the model to judge each
shortlisted chunk and finally proposes fixes for the best matches.

Press Ctrl-C to stop early; the judgments collected so far are still reported.

Examples:
  bug-warden analyze --report bug.txt --source ./Game
  bug-warden analyze -r bug.txt -s ./Game -k knowledge.txt --scripts ./Script --format md
  bug-warden analyze -r bug.txt -s ./Game --out ./reports --verbose
  bug-warden analyze -r bug.txt -s ./Game --offline`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	analyzeCmd.Flags().StringVarP(&reportPath, "report", "r", "", "Bug report text file (required)")
	analyzeCmd.Flags().StringVarP(&sourceRoot, "source", "s", "", "Source tree root (required)")
	analyzeCmd.Flags().StringVarP(&knowledgePath, "knowledge", "k", "", "Developer knowledge file")
	analyzeCmd.Flags().StringVar(&scriptDir, "scripts", "", "Game script directory")
	analyzeCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, md or json")
	analyzeCmd.Flags().StringVarP(&outDir, "out", "o", "", "Also write markdown and JSON reports into this directory")
	analyzeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with timing information")
	analyzeCmd.Flags().Bool("offline", false, "Rank by keyword overlap only, without calling the model")
	if err := viper.BindPFlag("offline", analyzeCmd.Flags().Lookup("offline")); err != nil {
		slog.Error("Error binding flag", "flag", "offline", "error", err)
		os.Exit(1)
	}
	_ = analyzeCmd.MarkFlagRequired("report")
	_ = analyzeCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(analyzeCmd)
}

// stepTimer tracks timing for verbose output
type stepTimer struct {
	stepNum    int
	totalSteps int
	start      time.Time
	verbose    bool
}

func newStepTimer(totalSteps int, verbose bool) *stepTimer {
	return &stepTimer{
		stepNum:    0,
		totalSteps: totalSteps,
		verbose:    verbose,
	}
}

func (t *stepTimer) step(name string) {
	t.stepNum++
	t.start = time.Now()
	if t.verbose {
		titleColor.Printf("\n🔧 Step %d/%d: %s...\n", t.stepNum, t.totalSteps, name)
	} else {
		fmt.Printf("%s...\n", name)
	}
}

func (t *stepTimer) done(details ...string) {
	if t.verbose {
		elapsed := time.Since(t.start).Round(time.Millisecond)
		successColor.Printf("   ✓ Done (%s)\n", elapsed)
		for _, d := range details {
			dimColor.Printf("   └── %s\n", d)
		}
	}
}

func (t *stepTimer) info(format string, args ...any) {
	if t.verbose {
		dimColor.Printf("   ├── "+format+"\n", args...)
	}
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timer := newStepTimer(4, verbose)
	overallStart := time.Now()

	titleColor.Println("🐞 Bug Warden - Analysis")
	dimColor.Printf("   Source: %s\n\n", sourceRoot)

	// 1. Read and validate input
	timer.step("Reading bug report")
	req, err := loadRequest()
	if err != nil {
		return err
	}
	timer.info("Title: %s", req.Report.Title)
	timer.done()

	// 2. Initialize Application
	timer.step("Initializing application")
	rt, cleanup, err := wire.InitializeRuntime(ctx, configFile)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w\n\nTip: Check that bug-warden.yaml exists and is valid", err)
	}
	defer cleanup()
	timer.info("Model: %s (%s)", rt.Cfg.LLM.Model, rt.Cfg.LLM.Provider)
	timer.done()

	// 3. Check the model; a dead service degrades the run instead of stopping it.
	timer.step("Checking LLM connection")
	switch {
	case rt.Cfg.Offline:
		warnColor.Println("⚠️  Offline mode: ranking by keyword overlap only")
	default:
		if err := rt.Gateway.Ping(ctx); err != nil {
			warnColor.Printf("⚠️  LLM service not reachable, results will be degraded: %v\n", err)
		} else {
			timer.done()
		}
		if rt.Translator != nil {
			if err := rt.Translator.Ping(ctx); err != nil {
				warnColor.Printf("⚠️  Translator not reachable, the report is analysed untranslated: %v\n", err)
			} else {
				timer.info("Translator: %s", rt.Cfg.LLM.With(rt.Cfg.LLM.Translator.LLMEndpoint).Model)
			}
		}
	}

	// 4. Run the pipeline
	timer.step("Analyzing")
	res, runErr := rt.Pipeline.Run(ctx, analysis.Input{
		Report:        req.Report,
		SourceRoot:    req.SourceRoot,
		KnowledgePath: req.KnowledgePath,
		ScriptDir:     req.ScriptDir,
	})
	if res == nil {
		if errors.Is(runErr, core.ErrNoChunks) {
			return fmt.Errorf("%w\n\nTip: Check --source and the chunker.extensions setting", runErr)
		}
		return fmt.Errorf("analysis failed: %w", runErr)
	}
	if runErr != nil {
		warnColor.Printf("⚠️  Analysis interrupted (%v); showing partial results\n", runErr)
	} else {
		timer.info("Chunks: %d in %d files", res.Stats.Chunks, res.Stats.Files)
		timer.info("Shortlisted: %d, judged: %d", res.Stats.Shortlisted, res.Stats.Judged)
		timer.done()
	}

	if verbose {
		dimColor.Printf("\n⏱️  Total time: %s\n", time.Since(overallStart).Round(time.Millisecond))
	}

	if err := printResult(os.Stdout, res, outputFormat); err != nil {
		return err
	}
	if outDir != "" {
		paths, err := writeReports(outDir, res)
		if err != nil {
			return err
		}
		for _, p := range paths {
			successColor.Printf("📝 Report written to %s\n", p)
		}
	}
	return nil
}

func loadRequest() (*core.AnalysisRequest, error) {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bug report: %w", err)
	}
	req := &core.AnalysisRequest{
		Report:        core.NewBugReport(string(data), reportPath),
		SourceRoot:    absPath(sourceRoot),
		KnowledgePath: absPath(knowledgePath),
		ScriptDir:     absPath(scriptDir),
	}
	if err := jobs.ValidateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// writeReports stores the markdown and JSON renderings of res in dir.
func writeReports(dir string, res *core.AnalysisResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var paths []string
	for _, format := range []string{formatMarkdown, formatJSON} {
		path := filepath.Join(dir, util.GenerateReportName(res.Report.Title, res.Started, format))
		f, err := os.Create(path)
		if err != nil {
			return paths, fmt.Errorf("failed to create report file: %w", err)
		}
		err = writeResult(f, res, format)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
