package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/jonfio22/pokemon-card-scanner/internal/match"
	"github.com/jonfio22/pokemon-card-scanner/internal/pricing"
	"github.com/jonfio22/pokemon-card-scanner/internal/recognize"
	"github.com/jonfio22/pokemon-card-scanner/internal/scanner"
	"github.com/jonfio22/pokemon-card-scanner/internal/vision"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("card-scanner")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		historyPath     = fs.StringLong("history-db", "card-scanner.db", "Valuation history database file path")
		storagePath     = fs.StringLong("storage", "./scans", "Rectified card image directory")
		recognizerType  = fs.StringLong("recognizer", "gemini", "Recognizer type: 'gemini' or 'ollama'")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL       = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		cardWidth       = fs.IntLong("card-width", vision.DefaultWidth, "Rectified card image width")
		cardHeight      = fs.IntLong("card-height", vision.DefaultHeight, "Rectified card image height")
		disableEbay     = fs.BoolLong("disable-ebay", "Disable the eBay sold-listings source")
		disableTCG      = fs.BoolLong("disable-tcgplayer", "Disable the TCGPlayer source")
		disableHints    = fs.BoolLong("disable-hints", "Disable the perceptual hash hint index")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CARD_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize valuation history
	slog.Info("Initializing valuation history...")
	history, err := pricing.NewBoltHistory(*historyPath)
	if err != nil {
		slog.Error("Failed to initialize history database", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	// Initialize recognizer based on type
	var recognizer recognize.Recognizer
	switch *recognizerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		recognizer, err = recognize.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		recognizer, err = recognize.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid recognizer type", "type", *recognizerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer recognizer.Close()

	// Initialize price sources
	var sources []pricing.Source
	if !*disableTCG {
		sources = append(sources, pricing.NewTCGPlayerSource())
	}
	if !*disableEbay {
		sources = append(sources, pricing.NewEbaySource())
	}
	sources = append(sources, pricing.NewCardmarketSource())

	aggregator := pricing.NewAggregator(sources, pricing.NewCache(pricing.DefaultCacheSize, pricing.DefaultCacheTTL))

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := scanner.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	normalizer := vision.NewNormalizer(*cardWidth, *cardHeight)
	service := scanner.NewService(normalizer, recognizer, aggregator).
		WithHistory(history).
		WithStorage(store)
	if !*disableHints {
		service = service.WithHinter(match.NewMatcher())
	}

	// Initialize server
	basicAuth := scanner.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := scanner.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
