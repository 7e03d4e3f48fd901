package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Backend names accepted by RECORDS_BACKEND, OBJECTS_BACKEND and CACHE_BACKEND.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendS3       = "s3"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

type Config struct {
	// Gateway
	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`
	JWTSecret       string `env:"SUPABASE_JWT_SECRET"`
	StorageBucket   string `env:"STORAGE_BUCKET"`

	// Server-side settings
	RecordsBackend string `env:"RECORDS_BACKEND"`
	DatabaseDSN    string `env:"DATABASE_URI"`
	ObjectsBackend string `env:"OBJECTS_BACKEND"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3Region       string `env:"S3_REGION"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3PublicURL    string `env:"S3_PUBLIC_URL"`
	MaxUploadMB    int64  `env:"MAX_UPLOAD_MB"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`
	LogFile     string `env:"LOG_FILE"`

	// Client-side settings
	ServerURL    string `env:"-"`
	ClientDBPath string `env:"CLIENT_DB_PATH"`
	CacheBackend string `env:"CACHE_BACKEND"`
	RedisURL     string `env:"REDIS_URL"`
	CacheSweep   string `env:"CACHE_SWEEP"`
	Version      bool   `env:"-"` // show client version and exit (flag only)
}

const defaultMaxUploadMB = 50

// MaxUploadBytes is the per-file upload limit.
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return defaultMaxUploadMB << 20
	}
	return c.MaxUploadMB << 20
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "self-hosted database DSN (postgres URL or sqlite file)")
	flag.StringVar(&cfg.RecordsBackend, "records", cfg.RecordsBackend, "records backend: supabase|postgres|sqlite")
	flag.StringVar(&cfg.ObjectsBackend, "objects", cfg.ObjectsBackend, "objects backend: supabase|s3")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the Sikumon server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to a rotating file")
	// Client flags
	flag.StringVar(&cfg.ClientDBPath, "client-db", cfg.ClientDBPath, "directory of the per-user cache databases")
	flag.StringVar(&cfg.CacheBackend, "cache", cfg.CacheBackend, "cache backend: sqlite|memory|redis")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	applyDefaults(cfg)
	return cfg
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

func applyDefaults(cfg *Config) {
	// BaseURL must be "address:port" (no scheme, no path)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}
	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.StorageBucket == "" {
		cfg.StorageBucket = "summaries"
	}
	if cfg.RecordsBackend == "" {
		cfg.RecordsBackend = BackendSupabase
	}
	if cfg.ObjectsBackend == "" {
		cfg.ObjectsBackend = BackendSupabase
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}

	if cfg.CacheBackend == "" {
		cfg.CacheBackend = BackendSQLite
	}
	if cfg.CacheSweep == "" {
		cfg.CacheSweep = "@every 1m"
	}
	if cfg.ClientDBPath == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.ClientDBPath = filepath.Join(dir, "Sikumon", "users")
		} else {
			home, _ := os.UserHomeDir()
			cfg.ClientDBPath = filepath.Join(home, ".sikumon", "users")
		}
	}
}
