package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/samroof/banpulse/internal/logger"
	"github.com/samroof/banpulse/internal/reddit"
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
	} else {
		cfg.Reddit.ClientID = os.Getenv("REDDIT_CLIENT_ID")
		cfg.Reddit.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	}
	if *dbPath != "" {
		cfg.Output.DBPath = *dbPath
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	if err := cfg.RequireCredentials(); err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.Logging.Level)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := sqlite.Open(ctx, cfg.Output.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}

	client := reddit.NewClient(reddit.Config{
		BaseURL:      cfg.Reddit.BaseURL,
		TokenURL:     cfg.Reddit.TokenURL,
		UserAgent:    cfg.Reddit.UserAgent,
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Timeout:      cfg.Timeout(),
	})

	p := banpulse.New(banpulse.Options{Config: cfg, Store: st, Logger: zlog})
	defer p.Close()

	res, err := p.Collect(ctx, client)
	if err != nil {
		log.Fatal("Collection failed: ", err)
	}

	log.Printf("Collected %d records across %d pairs", len(res.Records), len(res.Pairs))
}
