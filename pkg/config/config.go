package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Datasets   DatasetsConfig
	Climate    ClimateConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	HTTPServer HTTPServerConfig
	Refresh    RefreshConfig
}

type DatasetsConfig struct {
	FoodURL       string
	HeatURL       string
	WasteURL      string
	RasterTileURL string
}

type ClimateConfig struct {
	BaseURL   string
	Parameter string
	FillValue float64
	CacheTTL  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicSnapshots string
	NumPartitions  int
}

type HTTPServerConfig struct {
	Port           int
	MaxSubscribers int
	WriteTimeout   time.Duration
}

type RefreshConfig struct {
	DatasetInterval time.Duration
	ClimateInterval time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Datasets: DatasetsConfig{
			FoodURL:       getEnv("DATASET_FOOD_URL", "http://localhost:8091/food.geojson"),
			HeatURL:       getEnv("DATASET_HEAT_URL", "http://localhost:8091/heat.geojson"),
			WasteURL:      getEnv("DATASET_WASTE_URL", "http://localhost:8091/waste.geojson"),
			RasterTileURL: getEnv("RASTER_TILE_URL", "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}"),
		},
		Climate: ClimateConfig{
			BaseURL:   getEnv("CLIMATE_API_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
			Parameter: getEnv("CLIMATE_PARAMETER", "T2M"),
			FillValue: getEnvAsFloat("CLIMATE_FILL_VALUE", -999),
			CacheTTL:  getEnvAsDuration("CLIMATE_CACHE_TTL", 6*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:        getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicSnapshots: getEnv("KAFKA_TOPIC_SNAPSHOTS", "dashboard.snapshots"),
			NumPartitions:  getEnvAsInt("KAFKA_NUM_PARTITIONS", 3),
		},
		HTTPServer: HTTPServerConfig{
			Port:           getEnvAsInt("HTTP_PORT", 8080),
			MaxSubscribers: getEnvAsInt("HTTP_MAX_SUBSCRIBERS", 256),
			WriteTimeout:   getEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		},
		Refresh: RefreshConfig{
			DatasetInterval: getEnvAsDuration("REFRESH_DATASET_INTERVAL", 15*time.Minute),
			ClimateInterval: getEnvAsDuration("REFRESH_CLIMATE_INTERVAL", 6*time.Hour),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
