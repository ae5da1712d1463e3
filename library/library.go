// Package library turns command configuration into a bound engine library:
// either the embedded engine or a shared library fetched and loaded from
// library.path.
package library

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"go.uber.org/zap"

	"github.com/nickyhof/mydb/config"
	"github.com/nickyhof/mydb/engine"
	"github.com/nickyhof/mydb/native"
	"github.com/nickyhof/mydb/remote"
)

// Resolve binds the library described by cfg. It is meant to be called once
// at startup; the result is shared by every handle the command opens.
func Resolve(ctx context.Context, cfg config.Config, log *zap.Logger) (*native.Library, error) {
	if cfg.UseEmbedded() {
		log.Info("using embedded engine", zap.String("driver", cfg.Database.Driver))
		return engine.NewLibrary(engine.NewArena(nil),
			engine.WithDriver(cfg.Database.Driver),
			engine.WithLogger(log.Named("engine")),
		), nil
	}

	var cache billy.Filesystem
	switch remote.DetectScheme(cfg.Library.Path) {
	case remote.SchemeLocal, remote.SchemeFile:
	default:
		cache = osfs.New(cfg.Library.CacheDir)
	}

	opts := remote.Options{
		Log: log,
		S3: &remote.S3Config{
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
		},
	}

	path, err := remote.Fetch(ctx, cfg.Library.Path, cache, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch library: %w", err)
	}

	lib, err := native.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info("library loaded", zap.String("path", path), zap.String("free", lib.FreeSymbol()))
	return lib, nil
}
