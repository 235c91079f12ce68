// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Realtime                `yaml:"realtime"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":5001"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user"`
	RedisDB          int           `yaml:"db"`
	RedisMaxRetries  int           `yaml:"max_retries"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout"`
	RedisTimeout     time.Duration `yaml:"timeoutredis"`
	UserCacheTTL     time.Duration `yaml:"user_cache_ttl" env-default:"5m"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// RabbitMQ настройки брокера для событий обратной связи
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки почтового транспорта для notifier
type SMTP struct {
	SMTPHost     string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser     string `yaml:"user" env:"SMTP_USER"`
	SMTPPass     string `yaml:"password" env:"SMTP_PASSWORD"`
	SupportEmail string `yaml:"support_email" env:"SUPPORT_EMAIL"`
}

// Realtime настройки websocket-канала
type Realtime struct {
	SendBuffer     int           `yaml:"send_buffer" env-default:"64"`
	PingInterval   time.Duration `yaml:"ping_interval" env-default:"25s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env-default:"10s"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// RateLimit настройки ограничения частоты запросов на эндпоинты аутентификации
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"rps" env-default:"1"`
	Burst             int     `yaml:"burst" env-default:"5"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"Redis: %s (db %d)\n"+
			"HTTPServer: %s (timeout %s, idle %s)\n"+
			"TokenTTL: %s\n"+
			"RabbitMQ retries: %d\n"+
			"SMTP: %s:%s\n",
		c.Env,
		c.MigrationsPath,
		c.RedisAddress, c.RedisDB,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		c.TokenTTL,
		c.RabbitMQMaxRetries,
		c.SMTPHost, c.SMTPPort,
	)
}
