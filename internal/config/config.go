package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/replenish/internal/advisor"
	"github.com/andresuchdata/replenish/internal/storage"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Forecast ForecastConfig
	Advisor  advisor.Policy
	Pipeline PipelineConfig
	LogLevel string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

// ForecastTTL returns the forecast cache TTL.
func (c CacheConfig) ForecastTTL() time.Duration {
	return time.Duration(c.ForecastTTLSeconds) * time.Second
}

type StorageConfig struct {
	Backend              string
	LocalDir             string
	Endpoint             string
	AccessKey            string
	SecretKey            string
	Bucket               string
	Region               string
	UseSSL               bool
	DriveFolderID        string
	DriveCredentialsJSON string
}

// ObjectStorage maps the section onto storage.Config.
func (c StorageConfig) ObjectStorage() storage.Config {
	return storage.Config{
		Backend:              c.Backend,
		LocalDir:             c.LocalDir,
		Endpoint:             c.Endpoint,
		AccessKey:            c.AccessKey,
		SecretKey:            c.SecretKey,
		Bucket:               c.Bucket,
		Region:               c.Region,
		UseSSL:               c.UseSSL,
		DriveFolderID:        c.DriveFolderID,
		DriveCredentialsJSON: c.DriveCredentialsJSON,
	}
}

type ForecastConfig struct {
	ModelPrefix     string
	SalesKey        string
	StockKey        string
	BatchHorizon    int
	PredictHorizon  int
	LoadConcurrency int
}

type PipelineConfig struct {
	WorkerCount   int
	OutputDir     string
	XLSXEnabled   bool
	ResultsPrefix string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = FromViper(viper.New())
	})

	return instance
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "replenish")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 900)

	v.SetDefault("STORAGE_BACKEND", storage.BackendLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./data")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)

	v.SetDefault("FORECAST_MODEL_PREFIX", "models")
	v.SetDefault("FORECAST_SALES_KEY", "processed/processed_sales.csv")
	v.SetDefault("FORECAST_STOCK_KEY", "current_stock.csv")
	v.SetDefault("FORECAST_BATCH_HORIZON", 42)
	v.SetDefault("FORECAST_PREDICT_HORIZON", advisor.QuickHorizonDays)
	v.SetDefault("FORECAST_LOAD_CONCURRENCY", 8)

	v.SetDefault("ADVISOR_LEAD_TIME_DAYS", 7)
	v.SetDefault("ADVISOR_SAFETY_STOCK_DAYS", 5)
	v.SetDefault("ADVISOR_MIN_ORDER_QUANTITY", 5)
	v.SetDefault("ADVISOR_MAX_ORDER_QUANTITY", 200)

	v.SetDefault("PIPELINE_WORKER_COUNT", 4)
	v.SetDefault("PIPELINE_OUTPUT_DIR", "./data/output")
	v.SetDefault("PIPELINE_XLSX_ENABLED", false)
	v.SetDefault("PIPELINE_RESULTS_PREFIX", "")

	v.SetDefault("LOG_LEVEL", "info")
}

// FromViper builds a Config from v after registering defaults and
// environment lookup.
func FromViper(v *viper.Viper) *Config {
	SetDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetStringSlice("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Backend:              v.GetString("STORAGE_BACKEND"),
			LocalDir:             v.GetString("STORAGE_LOCAL_DIR"),
			Endpoint:             v.GetString("STORAGE_ENDPOINT"),
			AccessKey:            v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:            v.GetString("STORAGE_SECRET_KEY"),
			Bucket:               v.GetString("STORAGE_BUCKET"),
			Region:               v.GetString("STORAGE_REGION"),
			UseSSL:               v.GetBool("STORAGE_USE_SSL"),
			DriveFolderID:        v.GetString("DRIVE_FOLDER_ID"),
			DriveCredentialsJSON: v.GetString("DRIVE_CREDENTIALS_JSON"),
		},
		Forecast: ForecastConfig{
			ModelPrefix:     v.GetString("FORECAST_MODEL_PREFIX"),
			SalesKey:        v.GetString("FORECAST_SALES_KEY"),
			StockKey:        v.GetString("FORECAST_STOCK_KEY"),
			BatchHorizon:    v.GetInt("FORECAST_BATCH_HORIZON"),
			PredictHorizon:  v.GetInt("FORECAST_PREDICT_HORIZON"),
			LoadConcurrency: v.GetInt("FORECAST_LOAD_CONCURRENCY"),
		},
		Advisor: advisor.Policy{
			LeadTimeDays:     v.GetInt("ADVISOR_LEAD_TIME_DAYS"),
			SafetyStockDays:  v.GetInt("ADVISOR_SAFETY_STOCK_DAYS"),
			MinOrderQuantity: v.GetInt("ADVISOR_MIN_ORDER_QUANTITY"),
			MaxOrderQuantity: v.GetInt("ADVISOR_MAX_ORDER_QUANTITY"),
		},
		Pipeline: PipelineConfig{
			WorkerCount:   v.GetInt("PIPELINE_WORKER_COUNT"),
			OutputDir:     v.GetString("PIPELINE_OUTPUT_DIR"),
			XLSXEnabled:   v.GetBool("PIPELINE_XLSX_ENABLED"),
			ResultsPrefix: v.GetString("PIPELINE_RESULTS_PREFIX"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
}

// splitList accepts both repeated values and a single comma separated value.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
