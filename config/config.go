// Package config loads mydb command configuration from flags, MYDB_*
// environment variables and an optional mydb.yaml.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Library  LibraryConfig
	Database DatabaseConfig
	Log      LogConfig
	Server   ServerConfig
	S3       S3Config
}

type LibraryConfig struct {
	// Path is a local path or a file://, http(s):// or s3:// URL.
	Path     string
	CacheDir string
}

type DatabaseConfig struct {
	Path     string
	Driver   string
	Embedded bool
}

type LogConfig struct {
	Level       string
	File        string
	Development bool
}

type ServerConfig struct {
	Addr        string
	MetricsAddr string
	Auth        AuthConfig
	TLS         TLSConfig
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type TLSConfig struct {
	Cert string
	Key  string
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// UseEmbedded reports whether the in-process engine should be used instead of
// loading a shared library.
func (c Config) UseEmbedded() bool {
	return c.Database.Embedded || c.Library.Path == ""
}

// FlagKeys maps command-line flag names to configuration keys. Flags that a
// command does not define are skipped.
var FlagKeys = map[string]string{
	"library":      "library.path",
	"cache-dir":    "library.cache_dir",
	"db":           "database.path",
	"driver":       "database.driver",
	"embedded":     "database.embedded",
	"log-level":    "log.level",
	"log-file":     "log.file",
	"dev":          "log.development",
	"addr":         "server.addr",
	"metrics-addr": "server.metrics_addr",
	"jwt-secret":   "server.auth.secret",
	"jwt-issuer":   "server.auth.issuer",
	"jwt-audience": "server.auth.audience",
	"tls-cert":     "server.tls.cert",
	"tls-key":      "server.tls.key",
	"s3-region":    "s3.region",
	"s3-endpoint":  "s3.endpoint",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("library.cache_dir", filepath.Join(".mydb", "lib"))
	v.SetDefault("database.path", ":memory:")
	v.SetDefault("database.driver", "duckdb")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", ":3306")
	v.SetDefault("s3.region", "us-east-1")
}

// Load resolves the configuration. Precedence is flags, then environment,
// then the config file, then defaults. A --config flag names the file
// explicitly; otherwise mydb.yaml is looked up in ., ./config and /etc/mydb.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("mydb")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("mydb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.AddConfigPath("/etc/mydb")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := Config{
		Library: LibraryConfig{
			Path:     v.GetString("library.path"),
			CacheDir: v.GetString("library.cache_dir"),
		},
		Database: DatabaseConfig{
			Path:     v.GetString("database.path"),
			Driver:   v.GetString("database.driver"),
			Embedded: v.GetBool("database.embedded"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			File:        v.GetString("log.file"),
			Development: v.GetBool("log.development"),
		},
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			MetricsAddr: v.GetString("server.metrics_addr"),
			Auth: AuthConfig{
				Secret:   v.GetString("server.auth.secret"),
				Issuer:   v.GetString("server.auth.issuer"),
				Audience: v.GetString("server.auth.audience"),
			},
			TLS: TLSConfig{
				Cert: v.GetString("server.tls.cert"),
				Key:  v.GetString("server.tls.key"),
			},
		},
		S3: S3Config{
			Region:    v.GetString("s3.region"),
			Endpoint:  v.GetString("s3.endpoint"),
			AccessKey: v.GetString("s3.access_key"),
			SecretKey: v.GetString("s3.secret_key"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "duckdb", "sqlite3":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if (c.Server.TLS.Cert == "") != (c.Server.TLS.Key == "") {
		return errors.New("server.tls.cert and server.tls.key must be set together")
	}
	return nil
}
