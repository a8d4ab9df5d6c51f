package main

import (
	"fmt"
	"strings"

	"github.com/Jumpaku/go-objectfs/store/gcsstore"
	"github.com/Jumpaku/go-objectfs/store/s3store"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "OBJECTFS"

const (
	backendMemory = "memory"
	backendS3     = "s3"
	backendGCS    = "gcs"
)

type Config struct {
	Listen      string
	Backend     string
	Bucket      string
	BasePrefix  string
	Concurrency int
	UserHeader  string
	S3          s3store.Config
	GCS         gcsstore.Config
	LogLevel    string
	LogFormat   string
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("objectfsd", pflag.ContinueOnError)
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.String("listen", ":8080", "HTTP server address")
	fs.String("backend", backendMemory, "object store backend: memory, s3 or gcs")
	fs.String("bucket", "", "bucket holding every user tree")
	fs.String("base-prefix", "", "key prefix shared by every user tree")
	fs.Int("concurrency", 8, "max in-flight object requests per recursive operation")
	fs.String("user-header", "X-User-ID", "request header carrying the authenticated user ID")
	fs.String("s3.endpoint", "", "S3 endpoint URL, e.g. http://localhost:9000 for MinIO")
	fs.String("s3.region", "us-east-1", "S3 region")
	fs.String("s3.access-key", "", "S3 access key; the default AWS credential chain is used when empty")
	fs.String("s3.secret-key", "", "S3 secret key")
	fs.Bool("s3.path-style", false, "address the bucket in the URL path")
	fs.String("gcs.credentials-file", "", "GCS service account key file")
	fs.String("gcs.endpoint", "", "GCS JSON API endpoint, e.g. for an emulator")
	fs.String("log.level", "info", "log level")
	fs.String("log.format", "text", "log format: text or json")
	return fs
}

// loadConfig reads the configuration from args, OBJECTFS_* environment variables and an optional config file,
// in that order of precedence.
func loadConfig(args []string) (Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		Listen:      v.GetString("listen"),
		Backend:     strings.ToLower(v.GetString("backend")),
		Bucket:      v.GetString("bucket"),
		BasePrefix:  v.GetString("base-prefix"),
		Concurrency: v.GetInt("concurrency"),
		UserHeader:  v.GetString("user-header"),
		S3: s3store.Config{
			Bucket:       v.GetString("bucket"),
			Region:       v.GetString("s3.region"),
			Endpoint:     v.GetString("s3.endpoint"),
			AccessKey:    v.GetString("s3.access-key"),
			SecretKey:    v.GetString("s3.secret-key"),
			UsePathStyle: v.GetBool("s3.path-style"),
		},
		GCS: gcsstore.Config{
			Bucket:          v.GetString("bucket"),
			CredentialsFile: v.GetString("gcs.credentials-file"),
			Endpoint:        v.GetString("gcs.endpoint"),
		},
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Backend {
	case backendMemory:
	case backendS3, backendGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket is required for backend %s", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.UserHeader == "" {
		return fmt.Errorf("user-header must not be empty")
	}
	return nil
}
