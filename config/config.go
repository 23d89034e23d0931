package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Shop     ShopConfig
}

type ServerConfig struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string
	CORSOrigins   []string
}

type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicEvents   string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint   string
	TraceSampleRatio float64
}

type AuthConfig struct {
	JWTSecret string
}

type StorageConfig struct {
	Driver     string
	Bucket     string
	LocalDir   string
	PublicURL  string
	S3Region   string
	S3Endpoint string
}

type ShopConfig struct {
	Name                   string
	BankName               string
	BankAccountNumber      string
	BankAccountHolder      string
	AccessoryCategoryNames []string
	HomeCacheTTL           time.Duration
	FiltersCacheTTL        time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	autoMigrate, _ := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "false"))
	sampleRatio, err := strconv.ParseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 64)
	if err != nil || sampleRatio < 0 || sampleRatio > 1 {
		sampleRatio = 1
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			Env:           getEnv("ENV", "development"),
			LogLevel:      getEnv("LOG_LEVEL", ""),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			CORSOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			AutoMigrate: autoMigrate,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			TopicEvents:   getEnv("KAFKA_TOPIC_STORE_EVENTS", "store-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-service-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint:   jaegerEndpoint(getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces")),
			TraceSampleRatio: sampleRatio,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			Driver:     getEnv("STORAGE_DRIVER", "local"),
			Bucket:     getEnv("STORAGE_BUCKET", "product-images"),
			LocalDir:   getEnv("STORAGE_LOCAL_DIR", "./uploads"),
			PublicURL:  strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", "http://localhost:8080/uploads"), "/"),
			S3Region:   getEnv("S3_REGION", "ap-southeast-1"),
			S3Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Shop: ShopConfig{
			Name:              getEnv("SHOP_NAME", "HuyHoangWatch"),
			BankName:          getEnv("SHOP_BANK_NAME", "TEST Bank"),
			BankAccountNumber: getEnv("SHOP_BANK_ACCOUNT_NUMBER", "TEST STK"),
			BankAccountHolder: getEnv("SHOP_BANK_ACCOUNT_HOLDER", "TEST Store"),
			AccessoryCategoryNames: splitList(getEnv("SHOP_ACCESSORY_CATEGORIES",
				"Phụ kiện Dây đồng hồ,Phụ kiện Khóa đồng hồ")),
			HomeCacheTTL:    getDuration("HOME_CACHE_TTL", 60*time.Second),
			FiltersCacheTTL: getDuration("FILTERS_CACHE_TTL", 10*time.Minute),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		log.Printf("JWT_SECRET is not set: authenticated routes will reject every request")
	}

	log.Printf("Config loaded: env=%s, port=%s, storage=%s", cfg.Server.Env, cfg.Server.Port, cfg.Storage.Driver)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// jaegerEndpoint treats "none" as disabling span export
func jaegerEndpoint(v string) string {
	if strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
