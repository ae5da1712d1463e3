package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nickyhof/mydb"
	"github.com/nickyhof/mydb/config"
	"github.com/nickyhof/mydb/library"
	"github.com/nickyhof/mydb/logging"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	flags := pflag.NewFlagSet("mydb-server", pflag.ExitOnError)
	flags.String("config", "", "Config file (default: mydb.yaml in ., ./config, /etc/mydb)")
	flags.String("library", "", "Engine library: path, file://, http(s):// or s3:// URL")
	flags.String("cache-dir", "", "Directory for downloaded libraries")
	flags.String("db", "", "Database path (default :memory:)")
	flags.String("driver", "", "Embedded engine driver: duckdb or sqlite3")
	flags.Bool("embedded", false, "Use the embedded engine instead of a shared library")
	flags.String("addr", "", "TCP address to listen on (default :3306)")
	flags.String("metrics-addr", "", "HTTP address for /metrics (disabled if empty)")
	flags.String("jwt-secret", "", "Shared secret for HS256 JWT authentication (disabled if empty)")
	flags.String("jwt-issuer", "", "Expected JWT issuer")
	flags.String("jwt-audience", "", "Expected JWT audience")
	flags.String("tls-cert", "", "TLS certificate file")
	flags.String("tls-key", "", "TLS key file")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this rotating file")
	flags.Bool("dev", false, "Human-readable console logs")
	showVersion := flags.Bool("version", false, "Show version and exit")
	flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("mydb SQL Server v%s\n", Version)
		return
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func run(cfg config.Config, log *zap.Logger) error {
	lib, err := library.Resolve(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := mydb.NewMetrics(reg)

	return mydb.With(lib, cfg.Database.Path, func(db *mydb.DB) error {
		var server *Server
		if cfg.Server.Auth.Secret != "" {
			server = NewServerWithAuth(db, &AuthConfig{
				Enabled:   true,
				JWTSecret: cfg.Server.Auth.Secret,
				Issuer:    cfg.Server.Auth.Issuer,
				Audience:  cfg.Server.Auth.Audience,
			}, log)
		} else {
			server = NewServer(db, log)
		}

		if cfg.Server.TLS.Cert != "" {
			err = server.StartTLS(cfg.Server.Addr, cfg.Server.TLS.Cert, cfg.Server.TLS.Key)
		} else {
			err = server.Start(cfg.Server.Addr)
		}
		if err != nil {
			return err
		}
		defer server.Stop()

		if cfg.Server.MetricsAddr != "" {
			metricsServer := &http.Server{
				Addr:              cfg.Server.MetricsAddr,
				Handler:           newMetricsHandler(reg),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server failed", zap.Error(err))
				}
			}()
			defer metricsServer.Close()
			log.Info("metrics listening", zap.String("addr", cfg.Server.MetricsAddr))
		}

		log.Info("mydb SQL server started",
			zap.String("version", Version),
			zap.String("database", db.Path()),
			zap.String("library", lib.Name()),
			zap.Bool("auth", cfg.Server.Auth.Secret != ""),
			zap.Bool("tls", server.TLSEnabled()),
		)

		// Wait for shutdown signal
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		return nil
	}, mydb.WithLogger(log), mydb.WithMetrics(metrics))
}

func newMetricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
