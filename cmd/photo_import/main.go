// Command photo_import loads profile photos from a directory of
// <INFOPEN>.<ext> files, optionally watching it for new files.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"egressos/pkg/registry"
	"egressos/pkg/store"
	"egressos/process/photoimport"

	"go.uber.org/zap"

	_ "time/tzdata"
)

func main() {
	dir := flag.String("dir", "public/fotos", "directory to scan for photos named <INFOPEN>.<ext>")
	processed := flag.String("processed-dir", "public/processed", "move imported files here (empty keeps them)")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	watch := flag.Bool("watch", false, "keep watching the directory for new files")
	dryRun := flag.Bool("dry-run", false, "list what would be imported without writing")
	maxBytes := flag.Int("max-bytes", 1_000_000, "downscale images larger than this many bytes (0 disables)")
	verbose := flag.Bool("verbose", false, "per-file debug logging")
	flag.Parse()

	store.LoadDotEnv(".env")
	log := newLogger(*verbose)
	defer log.Sync()

	loc, err := time.LoadLocation(envOr("TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		log.Fatal("invalid TIMEZONE", zap.Error(err))
	}
	db, err := store.Open(store.OptionsFromEnv())
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := registry.NewService(db, loc, registry.WithLogger(log))
	im := photoimport.New(svc, photoimport.Options{
		Dir:          *dir,
		ProcessedDir: *processed,
		Workers:      *workers,
		MaxBytes:     *maxBytes,
		DryRun:       *dryRun,
	}, log)

	sum, err := im.Scan(ctx)
	if err != nil && ctx.Err() == nil {
		log.Fatal("scan failed", zap.Error(err))
	}
	log.Info("scan finished", zap.Stringer("summary", sum))

	if *watch && ctx.Err() == nil {
		if err := im.Watch(ctx); err != nil {
			log.Fatal("watch failed", zap.Error(err))
		}
		log.Info("watch stopped", zap.Stringer("summary", im.Summary()))
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
