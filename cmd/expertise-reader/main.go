package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/expertise-reader/internal/extraction"
	"github.com/zombor/expertise-reader/internal/report"
	"github.com/zombor/expertise-reader/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// options shared by every command
type options struct {
	scanners      *string
	geminiKey     *string
	geminiModel   *string
	ollamaURL     *string
	ollamaModel   *string
	tessLanguage  *string
	maxPages      *int
	minText       *int
	taxRate       *float64
	laborRate     *float64
	suppliesPrice *float64
	debug         *bool
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	rootFlags := ff.NewFlagSet("expertise-reader")
	opts := options{
		scanners:      rootFlags.StringLong("scanner", "text,tesseract", "Comma separated text sources tried in order: text, tesseract, gemini, ollama"),
		geminiKey:     rootFlags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)"),
		geminiModel:   rootFlags.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name"),
		ollamaURL:     rootFlags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL"),
		ollamaModel:   rootFlags.StringLong("ollama-model", "llava", "Ollama vision model name"),
		tessLanguage:  rootFlags.StringLong("tess-lang", "fra", "Tesseract language"),
		maxPages:      rootFlags.IntLong("max-pages", scanning.DefaultMaxPages, "Maximum pages rasterized for OCR"),
		minText:       rootFlags.IntLong("min-text", scanning.DefaultMinTextLength, "Shortest text accepted from a source before trying the next"),
		taxRate:       rootFlags.Float64Long("tax-rate", 0.20, "Default TVA rate"),
		laborRate:     rootFlags.Float64Long("labor-rate", 70, "Default hourly labour rate"),
		suppliesPrice: rootFlags.Float64Long("supplies-amount", 0, "Default amount for supplies mentioned without a price"),
		debug:         rootFlags.BoolLong("debug", "Enable debug logging"),
	}
	rootFlags.BoolLong("version", "Show version information")

	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	var (
		port        = serveFlags.IntLong("port", 8080, "HTTP server port")
		dbPath      = serveFlags.StringLong("db", "expertise-reader.db", "Database file path")
		storagePath = serveFlags.StringLong("storage", "./reports", "Storage directory path")
		authUser    = serveFlags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = serveFlags.StringLong("auth-pass", "", "Basic auth password (optional)")
	)
	serveCmd := &ff.Command{
		Name:      "serve",
		Usage:     "expertise-reader serve [FLAGS]",
		ShortHelp: "run the HTTP API",
		Flags:     serveFlags,
		Exec: func(ctx context.Context, args []string) error {
			return serve(ctx, opts, *port, *dbPath, *storagePath, report.BasicAuth{Username: *authUser, Password: *authPass})
		},
	}

	extractFlags := ff.NewFlagSet("extract").SetParent(rootFlags)
	extractCmd := &ff.Command{
		Name:      "extract",
		Usage:     "expertise-reader extract [FLAGS] <file>",
		ShortHelp: "print the document extracted from a report file",
		Flags:     extractFlags,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("extract requires exactly one file")
			}
			return extract(opts, args[0])
		},
	}

	rootCmd := &ff.Command{
		Name:        "expertise-reader",
		Usage:       "expertise-reader <SUBCOMMAND> [FLAGS]",
		Flags:       rootFlags,
		Subcommands: []*ff.Command{serveCmd, extractCmd},
	}

	if err := rootCmd.Parse(os.Args[1:], ff.WithEnvVarPrefix("EXPERTISE_READER")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(rootCmd.GetSelected()))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *opts.debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(rootCmd))
			os.Exit(1)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// newExtractor builds the extractor from the business defaults
func newExtractor(opts options) *extraction.Extractor {
	return extraction.New(extraction.Config{
		TaxRate:               *opts.taxRate,
		DefaultLaborRate:      *opts.laborRate,
		DefaultSuppliesAmount: *opts.suppliesPrice,
	}, slog.Default())
}

// newScanner builds the ordered chain of text sources
func newScanner(opts options) (scanning.Scanner, error) {
	var scanners []scanning.Scanner
	for _, name := range strings.Split(*opts.scanners, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "":
			continue
		case "text":
			scanners = append(scanners, scanning.NewTextLayer(*opts.minText))
		case "tesseract":
			slog.Info("Initializing Tesseract scanner...", "language", *opts.tessLanguage)
			scanners = append(scanners, scanning.NewTesseract(*opts.tessLanguage, *opts.maxPages))
		case "gemini":
			apiKey := *opts.geminiKey
			if apiKey == "" {
				apiKey = os.Getenv("GEMINI_API_KEY")
			}
			slog.Info("Initializing Gemini scanner...", "model", *opts.geminiModel)
			g, err := scanning.NewGemini(apiKey, *opts.geminiModel, *opts.maxPages)
			if err != nil {
				return nil, fmt.Errorf("initializing gemini: %w", err)
			}
			scanners = append(scanners, g)
		case "ollama":
			slog.Info("Initializing Ollama scanner...", "url", *opts.ollamaURL, "model", *opts.ollamaModel)
			o, err := scanning.NewOllama(*opts.ollamaURL, *opts.ollamaModel, *opts.maxPages)
			if err != nil {
				return nil, fmt.Errorf("initializing ollama: %w", err)
			}
			scanners = append(scanners, o)
		default:
			return nil, fmt.Errorf("invalid scanner type %q (valid: text, tesseract, gemini, ollama)", name)
		}
	}
	if len(scanners) == 0 {
		return nil, errors.New("at least one scanner is required")
	}
	return scanning.NewChain(*opts.minText, scanners...), nil
}

func serve(ctx context.Context, opts options, port int, dbPath, storagePath string, auth report.BasicAuth) error {
	slog.Info("Initializing database...")
	db, err := report.NewBoltDB(dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	scanner, err := newScanner(opts)
	if err != nil {
		return err
	}
	defer scanner.Close()

	slog.Info("Initializing storage...")
	store, err := report.NewLocalStorage(storagePath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	service := report.NewService(db, scanner, store, newExtractor(opts))
	server := report.NewServer(service, auth)

	addr := fmt.Sprintf(":%d", port)
	errc := make(chan error, 1)
	go func() {
		errc <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if auth.Enabled() {
		slog.Info("Basic auth enabled", "user", auth.Username)
	}

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Shutting down...")
		return nil
	}
}

func extract(opts options, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	scanner, err := newScanner(opts)
	if err != nil {
		return err
	}
	defer scanner.Close()

	contentType := ""
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".txt" {
		contentType = "text/plain"
	}
	scan, err := scanner.ScanDocument(data, contentType)
	if err != nil {
		return fmt.Errorf("scanning report: %w", err)
	}
	for _, w := range scan.Warnings {
		slog.Warn("Scan warning", "method", scan.Method, "warning", w)
	}

	doc := newExtractor(opts).Extract(scan.Text)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
