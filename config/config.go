package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	S3         S3Config
	Storefront StorefrontConfig
	Ingest     IngestConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string
	LogFormat   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a redis host was configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
	UploadDir       string // local fallback when Bucket is empty
	PublicURL       string // base URL for files served from UploadDir
}

// StorefrontConfig points at the remote catalog API and the HTML detail pages.
type StorefrontConfig struct {
	CatalogURL        string
	DetailURL         string
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

type IngestConfig struct {
	UploadURL          string
	GalleryLimit       int
	ScreenshotFormat   string
	ProductConcurrency int
	StoreConcurrency   int
	ScrapeConcurrency  int
	AssetConcurrency   int
	StrictRelations    bool
	Schedule           string
	DefaultQuery       string
	LockTTL            time.Duration
}

// DefaultParams parses DefaultQuery ("limit=48&order=desc:trending") into catalog params.
func (c *IngestConfig) DefaultParams() map[string]string {
	params := make(map[string]string)
	values, err := url.ParseQuery(c.DefaultQuery)
	if err != nil {
		log.Printf("Invalid INGEST_DEFAULT_QUERY %q: %v", c.DefaultQuery, err)
		return params
	}
	for k := range values {
		params[k] = values.Get(k)
	}
	return params
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := getEnv("SERVER_PORT", "8080")

	config := &Config{
		Server: ServerConfig{
			Port:        port,
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", ""),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "gamecatalog"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
			UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
			PublicURL:       getEnv("UPLOAD_PUBLIC_URL", "http://localhost:"+port+"/uploads"),
		},
		Storefront: StorefrontConfig{
			CatalogURL:        getEnv("STOREFRONT_CATALOG_URL", "https://catalog.gog.com/v1/catalog"),
			DetailURL:         getEnv("STOREFRONT_DETAIL_URL", "https://www.gog.com/game"),
			Timeout:           parseDuration(getEnv("STOREFRONT_TIMEOUT", "30s"), 30*time.Second),
			RequestsPerSecond: getEnvFloat("STOREFRONT_RPS", 0),
			UserAgent:         getEnv("STOREFRONT_USER_AGENT", "gamecatalog-ingest/1.0"),
		},
		Ingest: IngestConfig{
			UploadURL:          getEnv("INGEST_UPLOAD_URL", "http://localhost:"+port+"/api/upload"),
			GalleryLimit:       getEnvInt("INGEST_GALLERY_LIMIT", 5),
			ScreenshotFormat:   getEnv("INGEST_SCREENSHOT_FORMAT", "product_card_v2_mobile_slider_639"),
			ProductConcurrency: getEnvInt("INGEST_PRODUCT_CONCURRENCY", 8),
			StoreConcurrency:   getEnvInt("INGEST_STORE_CONCURRENCY", 8),
			ScrapeConcurrency:  getEnvInt("INGEST_SCRAPE_CONCURRENCY", 4),
			AssetConcurrency:   getEnvInt("INGEST_ASSET_CONCURRENCY", 4),
			StrictRelations:    getEnv("INGEST_RELATION_POLICY", "partial") == "strict",
			Schedule:           getEnv("INGEST_SCHEDULE", ""),
			DefaultQuery:       getEnv("INGEST_DEFAULT_QUERY", "limit=48&order=desc:trending&productType=in:game,pack"),
			LockTTL:            parseDuration(getEnv("INGEST_LOCK_TTL", "10m"), 10*time.Minute),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer %s=%s, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid number %s=%s, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}
