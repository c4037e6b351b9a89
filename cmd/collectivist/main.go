package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SyntaxAsSpiral/Collectivist/internal/mcp"
	"github.com/SyntaxAsSpiral/Collectivist/internal/pipeline"
	"github.com/SyntaxAsSpiral/Collectivist/internal/store"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `collectivist - intentional collection curation

Usage:
  collectivist update [flags] [path]   Run the full pipeline on a collection
  collectivist status [path]           Show index statistics
  collectivist serve                   Start the MCP server on stdio
  collectivist --version               Print version information

Update flags:
  -type string      Force collection type (repositories, obsidian, documents, media, generic)
  -workers int      Annotation worker count
  -skip-scan        Skip the scan stage
  -skip-annotate    Skip LLM annotation
  -skip-curate      Skip schema curation
  -skip-render      Skip rendering output documents
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Collectivist\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		os.Exit(0)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	log := newLogger()
	defer func() { _ = log.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	var err error
	switch os.Args[1] {
	case "update":
		err = runUpdate(ctx, log, os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "serve":
		err = runServe(ctx, log)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Logs always go to stderr so stdout
// stays clean for command output and the MCP protocol.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if os.Getenv("COLLECTIVIST_DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	return log
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func runUpdate(ctx context.Context, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	forceType := fs.String("type", "", "force collection type")
	workers := fs.Int("workers", 0, "annotation worker count")
	skipScan := fs.Bool("skip-scan", false, "skip the scan stage")
	skipAnnotate := fs.Bool("skip-annotate", false, "skip LLM annotation")
	skipCurate := fs.Bool("skip-curate", false, "skip schema curation")
	skipRender := fs.Bool("skip-render", false, "skip rendering")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root, err := resolveRoot(fs.Args())
	if err != nil {
		return err
	}

	p := pipeline.New(log)
	res, err := p.Run(ctx, root, pipeline.Options{
		ForceType:    *forceType,
		Workers:      *workers,
		SkipScan:     *skipScan,
		SkipAnnotate: *skipAnnotate,
		SkipCurate:   *skipCurate,
		SkipRender:   *skipRender,
		OnEvent:      consoleEvents,
	})
	if err != nil {
		return err
	}

	if res.Success {
		fmt.Printf("✓ %d items, %s\n", res.TotalItems, res.Duration.Round(time.Millisecond))
	} else {
		fmt.Printf("✗ run finished with errors (%d items)\n", res.TotalItems)
		for _, msg := range res.Errors {
			fmt.Printf("  - %s\n", msg)
		}
	}
	return nil
}

func runStatus(args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	st := store.New(root)
	if !st.HasIndex() {
		return fmt.Errorf("no index at %s; run `collectivist update` first", root)
	}
	ix, err := st.LoadIndex()
	if err != nil {
		return err
	}

	annotated := 0
	for _, it := range ix.Items {
		if it.Annotated() {
			annotated++
		}
	}

	fmt.Printf("Collection: %s\n", ix.CollectionID)
	fmt.Printf("Items:      %d (%d annotated, %d pending)\n",
		ix.TotalItems, annotated, len(ix.Unannotated()))
	if !ix.LastScan.IsZero() {
		fmt.Printf("Last scan:  %s (%.1fs)\n",
			ix.LastScan.Format("2006-01-02 15:04:05 MST"), ix.ScanDuration)
	}
	counts := ix.CategoryCounts()
	if len(counts) > 0 {
		fmt.Println("Categories:")
		for _, cat := range sortedKeys(counts) {
			fmt.Printf("  %-28s %d\n", cat, counts[cat])
		}
	}
	return nil
}

func runServe(ctx context.Context, log *zap.Logger) error {
	p := pipeline.New(log)
	server, err := mcp.NewServer(p, log)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errChan:
		return err
	}
}

func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

// consoleEvents prints pipeline progress to stderr, one line per event.
func consoleEvents(ev types.ProgressEvent) {
	marker := " "
	switch ev.Level {
	case types.LevelWarn:
		marker = "!"
	case types.LevelError:
		marker = "✗"
	case types.LevelSuccess:
		marker = "✓"
	}
	if ev.Total > 0 {
		fmt.Fprintf(os.Stderr, "%s [%s] (%d/%d) %s\n",
			marker, ev.Stage, ev.Completed, ev.Total, ev.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "%s [%s] %s\n", marker, ev.Stage, ev.Message)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
