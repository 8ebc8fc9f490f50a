package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceREST     = "rest"
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

type Config struct {
	Redis    RedisConfig
	Source   SourceConfig
	Cache    CacheConfig
	Server   ServerConfig
	Auth     AuthConfig
	Log      LogConfig
	Labels   LabelConfig
	RateSpec string
}

type SourceConfig struct {
	Kind        string
	SupabaseURL string
	SupabaseKey string
	DSN         string
	FixturePath string
	ChunkSize   int
	HTTPTimeout time.Duration
}

type CacheConfig struct {
	TTL          time.Duration
	RedisEnabled bool
}

type ServerConfig struct {
	HTTPPort string
	GRPCPort string
}

type AuthConfig struct {
	JWTSecret string
}

type LogConfig struct {
	Level       string
	Environment string
}

// LabelConfig holds the display strings injected by the composer.
type LabelConfig struct {
	Locale     string
	NoCategory string
	Featured   string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Source: SourceConfig{
			Kind:        getEnv("MENU_SOURCE", SourceREST),
			SupabaseURL: os.Getenv("SUPABASE_URL"),
			SupabaseKey: os.Getenv("SUPABASE_ANON_KEY"),
			DSN:         os.Getenv("MENU_DSN"),
			FixturePath: getEnv("MENU_FIXTURE_PATH", "fixtures/menu.json"),
			ChunkSize:   getEnvAsInt("FETCH_CHUNK_SIZE", 20),
			HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			TTL:          getEnvAsDuration("CACHE_TTL", 90*time.Second),
			RedisEnabled: getEnvAsBool("REDIS_ENABLED", true),
		},
		Server: ServerConfig{
			HTTPPort: getEnv("HTTP_PORT", "8080"),
			GRPCPort: getEnv("GRPC_PORT", "50052"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Labels: LabelConfig{
			Locale:     getEnv("MENU_LOCALE", "pt-BR"),
			NoCategory: getEnv("LABEL_NO_CATEGORY", "Sem categoria"),
			Featured:   getEnv("LABEL_FEATURED", "Destaque"),
		},
		RateSpec: getEnv("RATE_LIMIT", "120-M"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
