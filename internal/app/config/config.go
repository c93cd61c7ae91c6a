package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type SMTPConfig struct {
	Host         string        `yaml:"host" env:"SMTP_HOST"`
	Port         int           `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username     string        `yaml:"username" env:"SMTP_USERNAME"`
	Password     string        `yaml:"password" env:"SMTP_PASSWORD"`
	SenderEmail  string        `yaml:"sender_email" env:"SMTP_SENDER_EMAIL"`
	Encryption   string        `yaml:"encryption" env:"SMTP_ENCRYPTION" env-default:"tls"`
	ServerName   string        `yaml:"server_name" env:"SMTP_SERVER_NAME"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SMTP_WRITE_TIMEOUT" env-default:"10s"`
}

// Enabled reports whether enough is configured to deliver mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.SenderEmail != ""
}

type ProductCacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"PRODUCT_CACHE_TTL" env-default:"5m"`
}

type CartConfig struct {
	GuestTTL        time.Duration `yaml:"guest_ttl" env:"CART_GUEST_TTL" env-default:"720h"`
	MaxLineQuantity int           `yaml:"max_line_quantity" env:"CART_MAX_LINE_QUANTITY" env-default:"999"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	SessionCookie string        `yaml:"session_cookie" env:"SESSION_COOKIE_NAME" env-default:"session_id"`
	SessionMaxAge time.Duration `yaml:"session_max_age" env:"SESSION_MAX_AGE" env-default:"720h"`
	SecureCookie  bool          `yaml:"secure_cookie" env:"SESSION_COOKIE_SECURE" env-default:"false"`
}

type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   HTTPServerConfig   `yaml:"http_server"`
	GRPCServer   GRPCServerConfig   `yaml:"grpc_server"`
	MongoDB      MongoDBConfig      `yaml:"mongo"`
	Redis        RedisConfig        `yaml:"redis"`
	NATS         NATSConfig         `yaml:"nats"`
	Logger       LoggerConfig       `yaml:"logger"`
	Cart         CartConfig         `yaml:"cart"`
	ProductCache ProductCacheConfig `yaml:"product_cache"`
	Auth         AuthConfig         `yaml:"auth"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type HTTPServerConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT_CART_SERVICE" env-default:"8085"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type GRPCServerConfig struct {
	Port              string        `yaml:"port" env:"GRPC_PORT_CART_SERVICE" env-default:"50055"`
	MaxConnectionIdle time.Duration `yaml:"max_connection_idle" env-default:"15m"`
	TimeoutGraceful   time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type MongoDBConfig struct {
	URI                string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User               string `yaml:"user" env:"MONGO_USER"`
	Password           string `yaml:"password" env:"MONGO_PASSWORD"`
	Database           string `yaml:"database" env:"MONGO_DATABASE" env-default:"storefront"`
	ProductsCollection string `yaml:"products_collection" env:"MONGO_PRODUCTS_COLLECTION" env-default:"products"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type NATSConfig struct {
	URL  string `yaml:"url" env:"NATS_URL"`
	Name string `yaml:"name" env:"NATS_CLIENT_NAME" env-default:"CartService NATS Publisher"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"cart-service"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"METRICS_NAMESPACE" env-default:"cart_service"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if _, ok := err.(*os.PathError); ok {
			log.Printf("Warning: config file not found at %s, loading from environment variables only", path)
			if errEnv := cleanenv.ReadEnv(&cfg); errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH_CART_SERVICE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
