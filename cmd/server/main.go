package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"overworld/internal/api"
	"overworld/internal/assets"
	"overworld/internal/config"
	"overworld/internal/game"
	"overworld/internal/hub"
	"overworld/internal/logging"
	"overworld/internal/maps"
	"overworld/internal/render"
	"overworld/internal/save"
	"overworld/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to overworld.yaml")
	flag.Parse()

	cfg, err := config.Load(*configFile, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	// Generate host key if it doesn't exist
	if err := ensureHostKey(cfg.SSH.HostKey, log); err != nil {
		return fmt.Errorf("host key: %w", err)
	}

	fsys := afero.NewBasePathFs(afero.NewOsFs(), cfg.Assets.Root)

	// Load all maps from directory
	catalog, err := maps.LoadCatalog(fsys, cfg.Assets.MapsDir, cfg.Assets.Layouts)
	if err != nil {
		log.WithError(err).WithField("dir", cfg.Assets.MapsDir).Warn("could not load maps, using default map")
		catalog = maps.NewCatalog(nil, nil, maps.DefaultMap())
	}
	for _, e := range catalog.Validate() {
		log.WithError(e).Warn("map problem")
	}
	for _, id := range catalog.IDs() {
		w, h, _ := catalog.Size(id)
		log.WithFields(logrus.Fields{"map": id, "w": w, "h": h}).Info("map loaded")
	}

	cache, err := render.NewSheetCache(cfg.CacheBytes())
	if err != nil {
		return fmt.Errorf("sheet cache: %w", err)
	}
	defer cache.Close()

	source := &game.CatalogSource{
		Catalog: catalog,
		Graphics: &render.GraphicsLoader{
			Loader: assets.NewLoader(fsys, log),
			Cache:  cache,
			Log:    log,
		},
		Log: log,
	}
	sprites := render.NewSpriteSet(fsys, cfg.Assets.SpritesDir, log)

	store, err := save.Open(cfg.Save.Path)
	if err != nil {
		return fmt.Errorf("open save store: %w", err)
	}
	defer store.Close()

	h := hub.New(catalog, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sshServer := server.NewSSHServer(cfg.SSH.Addr, cfg.SSH.HostKey, server.Deps{
		Engine:  cfg.Engine(),
		Source:  source,
		Catalog: catalog,
		Sprites: sprites,
		Hub:     h,
		Store:   store,
		Log:     log,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.New(h, catalog, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run(ctx.Done())
		return nil
	})
	g.Go(func() error {
		log.WithField("addr", cfg.SSH.Addr).Info("connect with: ssh -p PORT YourName@localhost")
		return sshServer.Start()
	})
	g.Go(func() error {
		log.WithField("addr", cfg.HTTP.Addr).Info("HTTP API listening")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(sshServer.Shutdown(shutdownCtx), httpServer.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func ensureHostKey(path string, log logrus.FieldLogger) error {
	if _, err := os.Stat(path); err == nil {
		return nil // key already exists
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	log.WithField("path", path).Info("generating new host key")
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}

	pemBlock := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: keyBytes,
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return pem.Encode(f, pemBlock)
}
