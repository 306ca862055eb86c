// Package app wires configuration, storage, the review queue and the reviewer session together.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/config"
	"github.com/matheus-rech/clinical-study-extraction/internal/export"
	"github.com/matheus-rech/clinical-study-extraction/internal/pdf"
	"github.com/matheus-rech/clinical-study-extraction/internal/review"
	"github.com/matheus-rech/clinical-study-extraction/internal/session"
	"github.com/matheus-rech/clinical-study-extraction/internal/storage"
)

// App holds the long-lived components of the extraction server
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	KV      storage.KV
	Tracker *review.Tracker
	Library *pdf.Library
	Session *session.Session
	Exports *export.Service
}

// New opens the progress store and restores or builds the review queue
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	schema := review.DefaultSchema()
	if len(cfg.RequiredFields) > 0 {
		var err error
		if schema, err = schema.WithRequired(cfg.RequiredFields); err != nil {
			return nil, fmt.Errorf("invalid required fields: %w", err)
		}
	}

	kv, err := storage.New(ctx, cfg.StorageConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress storage: %w", err)
	}

	library := pdf.NewLibrary(cfg.PDFDirectory, cfg.MaxFileSize)
	if cfg.ExportDirectory != "" {
		library.Exclude(cfg.ExportDirectory)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		KV:      kv,
		Tracker: review.NewTracker(kv, schema, logger),
		Library: library,
	}
	if err := a.initQueue(ctx); err != nil {
		kv.Close()
		return nil, err
	}

	a.Session = session.New(session.Options{
		Tracker: a.Tracker,
		Library: library,
		Logger:  logger,
	})
	a.Exports = export.NewService(cfg.ExportDirectory, a.Tracker, logger)
	return a, nil
}

// initQueue reuses the persisted queue when there is one, otherwise draws a new one from the article directory
func (a *App) initQueue(ctx context.Context) error {
	queue, found, err := a.Tracker.LoadQueue(ctx)
	if err != nil {
		return err
	}

	if found && len(queue) > 0 {
		a.Logger.Info("restoring persisted review queue", zap.Int("articles", len(queue)))
	} else {
		ids, err := a.Library.ArticleIDs()
		if err != nil {
			return fmt.Errorf("failed to scan article directory: %w", err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no PDF articles found in %s", a.Config.PDFDirectory)
		}
		queue = review.BuildQueue(ids, a.Config.QueueSize, a.Config.QueueSeed)
		a.Logger.Info("built new review queue",
			zap.Int("candidates", len(ids)),
			zap.Int("articles", len(queue)),
			zap.Uint64("seed", a.Config.QueueSeed))
	}

	return a.Tracker.InitializeQueue(ctx, queue)
}

// Resume reopens the article that was active when the server last stopped
func (a *App) Resume(ctx context.Context) {
	res, ok, err := a.Session.Resume(ctx)
	switch {
	case err != nil:
		a.Logger.Warn("could not reopen last active article", zap.Error(err))
	case ok:
		a.Logger.Info("resumed article", zap.String("article", res.ArticleID), zap.String("status", string(res.Status)))
	}
}

// Close releases the progress store
func (a *App) Close() error {
	return a.KV.Close()
}
