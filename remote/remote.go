// Package remote resolves engine library locations. Local paths are used as
// they are; http(s):// and s3:// artifacts are downloaded into a cache
// filesystem first so the dynamic loader can map them.
package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v6"
	"go.uber.org/zap"
)

// S3Config contains S3 authentication configuration
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // Optional: custom S3-compatible endpoint
}

type Options struct {
	S3         *S3Config
	HTTPClient *http.Client
	// Refresh downloads the artifact even when it is already cached.
	Refresh bool
	Log     *zap.Logger
}

// Scheme represents the scheme of a library location
type Scheme string

const (
	SchemeFile  Scheme = "file"
	SchemeS3    Scheme = "s3"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeLocal Scheme = "local" // no scheme, local path
)

// DetectScheme detects the URL scheme from a location string
func DetectScheme(location string) Scheme {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return SchemeS3
	case strings.HasPrefix(lower, "https://"):
		return SchemeHTTPS
	case strings.HasPrefix(lower, "http://"):
		return SchemeHTTP
	case strings.HasPrefix(lower, "file://"):
		return SchemeFile
	default:
		return SchemeLocal
	}
}

// Fetch returns a local path for source. Remote artifacts are written to
// cache under a name derived from the source, and reused on later calls.
func Fetch(ctx context.Context, source string, cache billy.Filesystem, opts Options) (string, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	scheme := DetectScheme(source)
	switch scheme {
	case SchemeLocal:
		return source, nil
	case SchemeFile:
		return source[len("file://"):], nil
	case SchemeHTTP, SchemeHTTPS, SchemeS3:
	default:
		return "", fmt.Errorf("unsupported URL scheme: %s", source)
	}

	if cache == nil {
		return "", fmt.Errorf("no cache filesystem for %s", source)
	}

	name := cacheName(source)
	local := filepath.Join(cache.Root(), name)

	if !opts.Refresh {
		if _, err := cache.Stat(name); err == nil {
			log.Debug("library cached", zap.String("source", source), zap.String("path", local))
			return local, nil
		}
	}

	var (
		body io.ReadCloser
		err  error
	)
	if scheme == SchemeS3 {
		body, err = openS3Reader(ctx, source, opts.S3)
	} else {
		body, err = openHTTPReader(ctx, source, opts.HTTPClient)
	}
	if err != nil {
		return "", err
	}
	defer body.Close()

	n, err := store(cache, name, body)
	if err != nil {
		return "", fmt.Errorf("failed to cache %s: %w", source, err)
	}

	log.Info("library downloaded",
		zap.String("source", source),
		zap.String("path", local),
		zap.Int64("bytes", n),
	)
	return local, nil
}

// cacheName keeps the artifact's base name, so the loader's error messages
// stay readable, and prefixes a hash of the full source to keep artifacts
// from different locations apart.
func cacheName(source string) string {
	sum := sha256.Sum256([]byte(source))
	base := path.Base(strings.SplitN(source, "?", 2)[0])
	return hex.EncodeToString(sum[:8]) + "-" + base
}

// store writes r to a temporary file and renames it into place, so a
// partial download is never mistaken for a cached artifact.
func store(fs billy.Filesystem, name string, r io.Reader) (int64, error) {
	tmp := name + ".part"
	f, err := fs.Create(tmp)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fs.Remove(tmp)
		return 0, err
	}

	if err := fs.Rename(tmp, name); err != nil {
		fs.Remove(tmp)
		return 0, err
	}
	return n, nil
}

// openHTTPReader opens an HTTP GET reader
func openHTTPReader(ctx context.Context, url string, client *http.Client) (io.ReadCloser, error) {
	if client == nil {
		client = &http.Client{
			Timeout: 5 * time.Minute, // generous timeout for large files
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// parseS3URL parses s3://bucket/key into bucket and key parts
func parseS3URL(url string) (bucket, key string, err error) {
	rest := url[len("s3://"):]
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return parts[0], parts[1], nil
}

// getS3Client creates an S3 client with the given configuration
func getS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// openS3Reader opens a reader for an S3 object
func openS3Reader(ctx context.Context, url string, cfg *S3Config) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}

	return resp.Body, nil
}
