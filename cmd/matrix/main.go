package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"access-matrix-service/internal/adapters/cache"
	"access-matrix-service/internal/adapters/planner"
	"access-matrix-service/internal/adapters/store"
	"access-matrix-service/internal/config"
	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/platform/db"
	"access-matrix-service/internal/platform/progress"
	"access-matrix-service/internal/ports"
	"access-matrix-service/internal/services"
)

// main is the route computation composition root.
// It wires concrete adapters (file store, trip planner, optional SQL trip
// cache) behind ports and runs the scheduler over the requested scope.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	initMatrix := flag.Bool("init", false, "initialize route files for every (zone, period, mode) before computing")
	periodFlag := flag.String("period", "all", "time period: MORNING, EVENING, MIDNIGHT or all")
	modeFlag := flag.String("mode", "WALK", "transport mode: WALK or BICYCLE")
	sample := flag.Int("sample", 0, "random sample of origin zones (0 = all)")
	limit := flag.Int("limit", 0, "cap on total planner queries (0 = no cap)")
	flag.Parse()

	cfg := config.Load()

	mode, err := domain.ParseMode(*modeFlag)
	if err != nil {
		log.Fatal(err)
	}

	periods := domain.AllPeriods()
	if !strings.EqualFold(*periodFlag, "all") {
		period, err := domain.ParsePeriod(*periodFlag)
		if err != nil {
			log.Fatal(err)
		}
		periods = []domain.TimePeriod{period}
	}

	matrixStore := store.NewFileMatrixStore(cfg.DataDir)
	catalogStore := store.NewFileCatalogStore(cfg.CatalogPath)
	metadataStore := store.NewFileMetadataStore(cfg.MetadataPath)

	ctx := context.Background()

	tripCache, closeCache, err := openTripCache(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if closeCache != nil {
		defer closeCache()
	}

	tripPlanner, err := planner.NewOTPPlanner(cfg, tripCache)
	if err != nil {
		log.Fatal(err)
	}

	if *initMatrix {
		catalog, err := catalogStore.Load()
		if err != nil {
			log.Fatal(err)
		}
		zoneIDs := make([]string, 0, len(catalog.Zones))
		for _, z := range catalog.Zones {
			zoneIDs = append(zoneIDs, z.ID)
		}
		if err := matrixStore.Initialize(zoneIDs, periods, []domain.TransportMode{mode}); err != nil {
			log.Fatal(err)
		}
		log.Printf("initialized matrix files zones=%d periods=%d mode=%s", len(zoneIDs), len(periods), mode)
	}

	broker := progress.NewBroker()
	events := broker.Subscribe(256)
	done := make(chan struct{})
	go logEvents(events, done)

	scheduler := services.NewRouteScheduler(
		matrixStore, catalogStore, metadataStore, tripPlanner, broker,
		cfg.Concurrency, cfg.PaceDelay, cfg.FlushEvery,
	)

	result, err := scheduler.Run(ctx, services.ComputeScope{
		Periods:       periods,
		Mode:          mode,
		SampleOrigins: *sample,
		MaxQueries:    *limit,
	})

	broker.Close()
	<-done

	if err != nil {
		log.Fatal(err)
	}

	log.Printf("run=%s processed=%d ok=%d no_route=%d errors=%d remaining_pending=%d",
		result.RunID, result.Processed, result.OK, result.NoRoute, result.Errors, result.RemainingPending)
}

// openTripCache wires the optional trip result cache: SQLite when a path is
// configured, Postgres when a database URL is. Returns a nil cache when
// neither is set.
func openTripCache(ctx context.Context, cfg *config.Config) (ports.TripCache, func(), error) {
	switch {
	case cfg.TripCacheSQLitePath != "":
		conn, err := sql.Open("sqlite", cfg.TripCacheSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		c := cache.NewSqliteTripCache(conn)
		if err := c.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return c, func() { conn.Close() }, nil

	case cfg.TripCacheDatabaseURL != "":
		conn, err := db.Open(cfg.TripCacheDatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		c := cache.NewSQLTripCache(conn)
		if err := c.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return c, func() { conn.Close() }, nil
	}

	return nil, nil, nil
}

// logEvents mirrors progress events onto the log, thinning per-task progress
// to every 50th unit.
func logEvents(events <-chan progress.Event, done chan<- struct{}) {
	defer close(done)

	for ev := range events {
		switch ev.Kind {
		case progress.KindProgress:
			if ev.Current%50 == 0 || ev.Current == ev.Total {
				log.Printf("stage=%s progress=%d/%d", ev.Stage, ev.Current, ev.Total)
			}
		case progress.KindError:
			log.Printf("stage=%s error=%v %s", ev.Stage, ev.Err, ev.Message)
		default:
			log.Printf("stage=%s %s: %s", ev.Stage, ev.Kind, ev.Message)
		}
	}
}
