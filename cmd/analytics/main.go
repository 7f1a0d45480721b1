package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"access-matrix-service/internal/adapters/store"
	"access-matrix-service/internal/config"
	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/platform/progress"
	"access-matrix-service/internal/services"
)

// main is the analytics composition root: histogram/decile and reachability
// passes over the completed matrix, written back onto the zone catalog.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	pass := flag.String("pass", "all", "analytics pass: histogram, reachability or all")
	periodFlag := flag.String("period", "MORNING", "time period for the reachability pass")
	modeFlag := flag.String("mode", "WALK", "transport mode: WALK or BICYCLE")
	deciles := flag.Bool("deciles", false, "use equal-count deciles instead of fixed 15-minute buckets")
	force := flag.Bool("force", false, "overwrite previously calculated results")
	flag.Parse()

	cfg := config.Load()

	mode, err := domain.ParseMode(*modeFlag)
	if err != nil {
		log.Fatal(err)
	}
	period, err := domain.ParsePeriod(*periodFlag)
	if err != nil {
		log.Fatal(err)
	}

	matrixStore := store.NewFileMatrixStore(cfg.DataDir)
	catalogStore := store.NewFileCatalogStore(cfg.CatalogPath)
	metadataStore := store.NewFileMetadataStore(cfg.MetadataPath)

	broker := progress.NewBroker()
	events := broker.Subscribe(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Kind == progress.KindProgress {
				continue
			}
			log.Printf("stage=%s %s: %s", ev.Stage, ev.Kind, ev.Message)
		}
	}()

	ctx := context.Background()

	runHistogram := strings.EqualFold(*pass, "histogram") || strings.EqualFold(*pass, "all")
	runReachability := strings.EqualFold(*pass, "reachability") || strings.EqualFold(*pass, "all")

	if runHistogram {
		engine := services.NewHistogramEngine(matrixStore, catalogStore, metadataStore, broker)
		buckets, err := engine.Run(ctx, services.HistogramOptions{
			Mode:    mode,
			Deciles: *deciles,
			Force:   *force,
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, b := range buckets {
			log.Printf("bucket=%d range=[%d,%d) color=%s label=%q",
				b.Number, b.MinDurationSeconds, b.MaxDurationSeconds, b.Color, b.Label)
		}
	}

	if runReachability {
		engine := services.NewReachabilityEngine(matrixStore, catalogStore, metadataStore, broker)
		if err := engine.Run(ctx, services.ReachabilityOptions{
			Period: period,
			Mode:   mode,
			Force:  *force,
		}); err != nil {
			log.Fatal(err)
		}
	}

	broker.Close()
	<-done
}
