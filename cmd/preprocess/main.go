package main

import (
	"context"
	"flag"
	"log"

	"github.com/samroof/banpulse/internal/logger"
	"github.com/samroof/banpulse/pkg/banpulse"
	"github.com/samroof/banpulse/pkg/banpulse/config"
	"github.com/samroof/banpulse/pkg/banpulse/csvio"
	"github.com/samroof/banpulse/pkg/banpulse/store"
	"github.com/samroof/banpulse/pkg/banpulse/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		dbPath     = flag.String("db", "", "Database path (overrides config)")
		outDir     = flag.String("out", "", "Output directory (overrides config)")
		rawCSV     = flag.String("raw", "", "Import raw posts from CSV instead of the collected stage")
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

	if *rawCSV != "" {
		recs, err := csvio.ReadRecords(*rawCSV)
		if err != nil {
			log.Fatal("Failed to read raw CSV: ", err)
		}
		if err := st.SaveStage(ctx, store.StageRaw, recs); err != nil {
			log.Fatal("Failed to import raw records: ", err)
		}
		log.Printf("Imported %d raw records from %s", len(recs), *rawCSV)
	}

	res, err := p.Preprocess(ctx)
	if err != nil {
		log.Fatal("Preprocessing failed: ", err)
	}

	log.Printf("Filtered %d -> %d records, %d matched keywords",
		res.Stats.Initial, len(res.Filtered), len(res.Kept))
}
