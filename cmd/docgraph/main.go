package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docgraph/internal/chunker"
	"docgraph/internal/config"
	"docgraph/internal/domain"
	"docgraph/internal/embedding"
	"docgraph/internal/engine"
	"docgraph/internal/llm"
	"docgraph/internal/summarizer"
	"docgraph/internal/tui"
	"docgraph/internal/vectorstore"
	"docgraph/internal/vectorstore/memory"
	"docgraph/internal/vectorstore/qdrant"
)

const usage = `Usage:
  docgraph [--config=config.yaml] [-v] ingest <dir-or-file> [more files ...]
  docgraph [--config=config.yaml] [-v] query "<question>"
  docgraph [--config=config.yaml] [-v] chat [dir-or-file ...]

ingest  indexes the given files or directories and exits
query   runs a single question against the existing index
chat    optionally ingests the given paths, then opens the interactive session
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var verbose bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docgraph/config.yaml if not provided)")
	flag.BoolVar(&verbose, "v", false, "Enable debug logging")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fatal(logger, "failed to load config", err)
	}

	eng, err := assemble(cfg, logger)
	if err != nil {
		fatal(logger, "failed to assemble engine", err)
	}

	ctx := context.Background()
	opts := engine.QueryOptions{
		SimilarityThreshold: cfg.Engine.Query.SimilarityThreshold,
		ContextWindow:       cfg.Engine.Query.ContextWindow,
		Limit:               cfg.Engine.Query.Limit,
		IncludeHierarchy:    cfg.Engine.Query.IncludeHierarchy,
	}

	switch args[0] {
	case "ingest":
		if len(args) < 2 {
			fmt.Print(usage)
			os.Exit(1)
		}
		if err := ingestPaths(ctx, eng, args[1:]); err != nil {
			fatal(logger, "ingest failed", err)
		}
	case "query":
		if len(args) != 2 {
			fmt.Print(usage)
			os.Exit(1)
		}
		res, err := eng.Query(ctx, args[1], opts)
		if err != nil {
			fatal(logger, "query failed", err)
		}
		printResult(res)
	case "chat":
		if err := ingestPaths(ctx, eng, args[1:]); err != nil {
			fatal(logger, "ingest failed", err)
		}
		if _, err := tea.NewProgram(tui.New(eng, opts), tea.WithAltScreen()).Run(); err != nil {
			fatal(logger, "tui failed", err)
		}
	default:
		fmt.Print(usage)
		os.Exit(1)
	}
}

func assemble(cfg *config.AppConfig, logger *slog.Logger) (*engine.Engine, error) {
	completer, err := llm.NewClient(llm.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}

	embedder, err := embedding.NewClient(embedding.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	ch, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	var store vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory":
		store = memory.NewStorage()
	case "qdrant":
		store = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    cfg.VectorStore.Qdrant.Timeout(),
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var inner domain.Summarizer
	switch cfg.Summarizer.Type {
	case "llm":
		inner = summarizer.NewLLM(completer)
	case "frequency":
		inner = summarizer.NewFrequency(cfg.Summarizer.MaxSentences)
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	ecfg := engine.Config{
		StatePath:             cfg.Engine.StatePath,
		UpsertBatchSize:       cfg.Engine.UpsertBatchSize,
		RelationshipThreshold: cfg.Engine.RelationshipThreshold,
	}
	return engine.New(ecfg, ch, embedder, completer, store, inner, logger), nil
}

func ingestPaths(ctx context.Context, eng *engine.Engine, paths []string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if info.IsDir() {
			docs, err := eng.IngestDirectory(ctx, p)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d documents from %s\n", len(docs), p)
			continue
		}
		doc, err := eng.IngestDocument(ctx, p)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %s (%d chars)\n", doc.ID, len(doc.Text))
	}
	return nil
}

func printResult(res domain.QueryResult) {
	fmt.Println(res.Answer)
	if res.SourceCount == 0 {
		return
	}
	fmt.Printf("\nSources (%d):\n", res.SourceCount)
	for i, s := range res.Sources {
		fmt.Printf("  %d. %s  node %d/%d  score %.3f\n",
			i+1, s.Metadata.FileName, s.NodeInfo.Index+1, s.NodeInfo.TotalNodes, s.Score)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
