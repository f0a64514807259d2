package main

import (
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docchat/internal/config"
	"docchat/internal/docs"
	"docchat/internal/domain"
	"docchat/internal/evaluator"
	"docchat/internal/index/memory"
	"docchat/internal/index/qdrant"
	"docchat/internal/llm"
	"docchat/internal/logger"
	"docchat/internal/retriever"
	"docchat/internal/segmenter"
	"docchat/internal/session"
	"docchat/internal/synthesizer"
	"docchat/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, docsDir string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	flag.StringVar(&docsDir, "docs", "", "Directory with .txt documents (overrides config)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if docsDir != "" {
		cfg.Documents.Dir = docsDir
	}

	applog, closer, err := logger.NewFile(cfg.Log.File, logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer closer.Close()

	client, err := llm.NewClient(llm.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKeyEnv:      cfg.LLM.APIKeyEnv,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Timeout:        time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}

	seg, err := segmenter.New(cfg.Segmenter.ChunkSize, cfg.Segmenter.Overlap)
	if err != nil {
		log.Fatalf("segmenter init failed: %v", err)
	}

	var builder domain.IndexBuilder
	switch cfg.Index.Store {
	case "memory", "":
		builder = memory.NewBuilder()
	case "qdrant":
		builder = qdrant.NewBuilder(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     cfg.Index.Qdrant.APIKey,
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown index store: %s", cfg.Index.Store)
	}

	loader := docs.NewLoader(cfg.Documents.Dir)
	svc := session.New(session.Config{
		Models:             cfg.LLM.Models,
		DefaultModel:       cfg.LLM.DefaultModel,
		DefaultTemperature: cfg.LLM.DefaultTemperature,
		EvaluationEnabled:  cfg.Evaluation.Enabled,
		MaxSelected:        cfg.Documents.MaxSelected,
	}, session.Deps{
		Loader:      loader,
		Segmenter:   seg,
		Embedder:    client,
		Builder:     builder,
		Retriever:   retriever.New(client, cfg.Retrieval.TopK),
		Synthesizer: synthesizer.New(client, cfg.LLM.MaxTokens, applog),
		Evaluator:   evaluator.New(client, cfg.Evaluation.Temperature, cfg.Evaluation.ContextChars, cfg.LLM.MaxTokens, applog),
		Logger:      applog,
	})

	available, err := loader.List()
	if err != nil {
		log.Fatalf("listing documents in %s: %v", cfg.Documents.Dir, err)
	}

	m := tui.New(svc, available)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
