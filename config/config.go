package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

const EnvProduction = "production"

type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	SkyRush     SkyRushConfig     `yaml:"skyrush"`
	ShipStation ShipStationConfig `yaml:"shipstation"`
	Cloudinary  CloudinaryConfig  `yaml:"cloudinary"`
	Log         LogConfig         `yaml:"log"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnString prefers an explicit URL over the discrete fields.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	PackageStatusTopicName string `yaml:"package_status_topic_name"`
	ConsumerGroup          string `yaml:"consumer_group"`
}

func (k KafkaConfig) Addr() string {
	return fmt.Sprintf("%s:%d", k.Host, k.Port)
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type SkyRushConfig struct {
	HTTPAddr       string   `yaml:"http_addr"`
	Env            string   `yaml:"env"`
	JWTSecret      string   `yaml:"jwt_secret"`
	SessionTTLDays int      `yaml:"session_ttl_days"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AdminEmails    []string `yaml:"admin_emails"`

	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	PublicTrackingTTLSeconds int `yaml:"public_tracking_ttl_seconds"`
}

type ShipStationConfig struct {
	BaseURL             string   `yaml:"base_url"`
	APIKey              string   `yaml:"api_key"`
	APISecret           string   `yaml:"api_secret"`
	Carriers            []string `yaml:"carriers"`
	WarehousePostalCode string   `yaml:"warehouse_postal_code"`
	WarehouseCountry    string   `yaml:"warehouse_country"`
	CustomerPageSize    int      `yaml:"customer_page_size"`
	RateLimitPerMinute  int      `yaml:"rate_limit_per_minute"`
	TimeoutSeconds      int      `yaml:"timeout_seconds"`
}

type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Folder    string `yaml:"folder"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func (c *Config) IsProduction() bool {
	return c.SkyRush.Env == EnvProduction
}

// LoadConfig reads the YAML file, then lets the process environment (and an
// optional .env next to the binary) override secrets and deployment knobs.
func LoadConfig(filename string) (*Config, error) {
	_ = godotenv.Load()

	var config Config
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	}

	config.applyEnv()
	config.ApplyDefaults()
	return &config, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.SkyRush.JWTSecret, "JWT_SECRET")
	setString(&c.SkyRush.Env, "APP_ENV")
	setString(&c.ShipStation.APIKey, "SHIPSTATION_API_KEY")
	setString(&c.ShipStation.APISecret, "SHIPSTATION_API_SECRET")
	setString(&c.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&c.Cloudinary.APIKey, "CLOUDINARY_API_KEY")
	setString(&c.Cloudinary.APISecret, "CLOUDINARY_API_SECRET")

	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			c.SkyRush.HTTPAddr = ":" + port
		}
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.SkyRush.AllowedOrigins = splitList(origins)
	}
}

func (c *Config) ApplyDefaults() {
	if c.SkyRush.HTTPAddr == "" {
		c.SkyRush.HTTPAddr = ":5000"
	}
	if c.SkyRush.Env == "" {
		c.SkyRush.Env = "development"
	}
	if c.SkyRush.SessionTTLDays <= 0 {
		c.SkyRush.SessionTTLDays = 7
	}
	if len(c.SkyRush.AllowedOrigins) == 0 {
		c.SkyRush.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.SkyRush.UploadDir == "" {
		c.SkyRush.UploadDir = "uploads"
	}
	if c.SkyRush.MaxUploadBytes <= 0 {
		c.SkyRush.MaxUploadBytes = 5 << 20
	}
	if c.SkyRush.PublicTrackingTTLSeconds <= 0 {
		c.SkyRush.PublicTrackingTTLSeconds = 600
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}

	if c.Kafka.Host == "" {
		c.Kafka.Host = "localhost"
	}
	if c.Kafka.Port == 0 {
		c.Kafka.Port = 9092
	}
	if c.Kafka.PackageStatusTopicName == "" {
		c.Kafka.PackageStatusTopicName = "package.status_changed"
	}
	if c.Kafka.ConsumerGroup == "" {
		c.Kafka.ConsumerGroup = "skyrush-api"
	}

	if c.ShipStation.BaseURL == "" {
		c.ShipStation.BaseURL = "https://ssapi.shipstation.com"
	}
	if len(c.ShipStation.Carriers) == 0 {
		c.ShipStation.Carriers = []string{"ups", "fedex", "stamps_com"}
	}
	if c.ShipStation.WarehousePostalCode == "" {
		c.ShipStation.WarehousePostalCode = "90210"
	}
	if c.ShipStation.WarehouseCountry == "" {
		c.ShipStation.WarehouseCountry = "US"
	}
	if c.ShipStation.CustomerPageSize <= 0 {
		c.ShipStation.CustomerPageSize = 500
	}
	if c.ShipStation.RateLimitPerMinute <= 0 {
		c.ShipStation.RateLimitPerMinute = 40
	}
	if c.ShipStation.TimeoutSeconds <= 0 {
		c.ShipStation.TimeoutSeconds = 10
	}

	if c.Cloudinary.Folder == "" {
		c.Cloudinary.Folder = "skyrush_packages"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
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
