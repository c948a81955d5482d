package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/inkpressd/inkpress/pkg/rando"
	"github.com/inkpressd/inkpress/server/auth"
	"github.com/inkpressd/inkpress/server/cache"
	"github.com/inkpressd/inkpress/server/image"
	"github.com/inkpressd/inkpress/server/model"
	"github.com/inkpressd/inkpress/server/post"
	"github.com/inkpressd/inkpress/server/storage"
	"gorm.io/gorm"
)

type Server struct {
	Log logs.Log

	config  *Config
	db      *gorm.DB
	cache   *cache.Cache
	storage storage.Storage
	auth    *auth.AuthServer
	posts   *post.PostServer
	images  *image.ImageServer

	httpServer *http.Server

	// signalIn listens for OS kill signals
	signalIn chan os.Signal
}

func NewServer(log logs.Log, configFile string) (*Server, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	db, err := dbh.OpenDB(log, cfg.DB, model.Migrations(log), 0)
	if err != nil {
		return nil, err
	}

	cash, err := cache.NewCache(log, cfg.Redis)
	if err != nil {
		return nil, err
	}

	store, err := newStorage(log, cfg.ImageStorage)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Log:     log,
		config:  cfg,
		db:      db,
		cache:   cash,
		storage: store,
	}
	s.auth = auth.NewAuthServer(db, log)
	s.posts = post.NewPostServer(db, log, cash)
	s.images = image.NewImageServer(db, log, store)

	if err := s.bootstrapAdmin(); err != nil {
		return nil, err
	}
	s.auth.StartSessionSweeper()
	return s, nil
}

func newStorage(log logs.Log, cfg StorageConfig) (storage.Storage, error) {
	switch {
	case cfg.GCS != nil:
		return storage.NewStorageGCS(log, cfg.GCS.Bucket)
	case cfg.S3 != nil:
		return storage.NewStorageS3(log, cfg.S3)
	default:
		return storage.NewStorageFS(log, cfg.Filesystem.Root)
	}
}

// bootstrapAdmin creates the initial admin account on an empty database,
// with a random password that is printed to the log exactly once.
func (s *Server) bootstrapAdmin() error {
	nUsers := int64(0)
	if err := s.db.Model(&model.User{}).Count(&nUsers).Error; err != nil {
		return err
	}
	if nUsers != 0 {
		return nil
	}
	password := rando.StrongRandomAlphaNumChars(20)
	id, err := s.auth.CreateUser("admin@localhost", "Admin", password, true)
	if err != nil {
		return err
	}
	s.Log.Infof("Created initial admin user %v (admin@localhost). Password: %v", id, password)
	s.Log.Infof("Change this password after your first login.")
	return nil
}

// ListenHTTP blocks until the server shuts down. It returns nil after a
// clean Shutdown.
func (s *Server) ListenHTTP() error {
	s.Log.Infof("Listening on %v", s.config.HTTP)
	s.httpServer = &http.Server{
		Addr:    s.config.HTTP,
		Handler: s.setupRoutes(),
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenForKillSignals starts a goroutine that initiates a clean shutdown
// on SIGINT or SIGTERM.
func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received signal %v. Shutting down", sig)
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown starting")

	s.auth.StopSessionSweeper()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP server shutdown error: %v", err)
		}
	}

	s.cache.Close()
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
	s.Log.Infof("Shutdown complete")
}

// DB is exposed for tools and tests.
func (s *Server) DB() *gorm.DB {
	return s.db
}
