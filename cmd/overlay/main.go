package main

import (
	"context"
	"flag"
	"log"

	"github.com/samroof/banpulse/internal/logger"
	"github.com/samroof/banpulse/pkg/banpulse"
	"github.com/samroof/banpulse/pkg/banpulse/config"
	"github.com/samroof/banpulse/pkg/banpulse/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		dbPath     = flag.String("db", "", "Database path (overrides config)")
		outDir     = flag.String("out", "", "Output directory (overrides config)")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal("Failed to load config: ", err)
		}
		cfg = loaded
	}
	if *dbPath != "" {
		cfg.Output.DBPath = *dbPath
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	zlog, err := logger.New(cfg.Logging.Level)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	st, err := sqlite.Open(ctx, cfg.Output.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}

	p := banpulse.New(banpulse.Options{Config: cfg, Store: st, Logger: zlog})
	defer p.Close()

	res, err := p.Overlay(ctx)
	if err != nil {
		log.Fatal("Overlay failed: ", err)
	}

	log.Printf("Merged %d records (%d sentiment-only, %d topic-only dropped)",
		len(res.Records), res.UnmatchedSentiment, res.UnmatchedTopics)
}
