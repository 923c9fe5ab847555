package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"egressos/pkg/refdata"
	"egressos/pkg/registry"
	"egressos/pkg/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "time/tzdata"
)

type app struct {
	cfg Config
	db  *gorm.DB
	log *zap.Logger
	reg *registry.Service
	ref *refdata.Reference
	now func() time.Time
}

func newApp(cfg Config, db *gorm.DB, log *zap.Logger, ref *refdata.Reference) *app {
	return &app{
		cfg: cfg,
		db:  db,
		log: log,
		reg: registry.NewService(db, cfg.Location, registry.WithLogger(log)),
		ref: ref,
		now: time.Now,
	}
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.log))
	r.MaxMultipartMemory = (a.cfg.MaxUploadMB + 1) << 20
	a.setupRoutes(r)
	return r
}

func main() {
	// Auto-load ./.env if present before reading vars
	store.LoadDotEnv(".env")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	// `egressos migrate` runs migrations and seeding, then exits.
	migrateOnly := len(os.Args) > 1 && os.Args[1] == "migrate"
	if cfg.AutoMigrate || migrateOnly {
		migrateDB(db, log)
	}
	if err := seedDB(db, cfg.AdminPassword, log); err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}
	if migrateOnly {
		log.Info("migration and seeding completed")
		return
	}

	ref, err := refdata.Load(cfg.EnterpriseRef, cfg.CityRef)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Fatal("reference data", zap.Error(err))
		}
		log.Warn("reference data missing, selection lists will be empty", zap.Error(err))
		ref = refdata.Empty()
	}

	a := newApp(cfg, db, log, ref)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("db", cfg.DBDriver), zap.String("timezone", cfg.Location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
