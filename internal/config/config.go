// Package config предоставялет структуры и функции для парсинга и загрузки конфига.
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
	Env                     string        `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	StorageOpTimeout        time.Duration `yaml:"storage_op_timeout" env:"STORAGE_OP_TIMEOUT" env-default:"3s"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	Password                `yaml:"password"`
	RateLimit               `yaml:"rate_limit"`
	RabbitMQ                `yaml:"rabbitmq"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":3000"`
	TimeoutHTTP time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`

	// Разбирать X-Forwarded-For/X-Real-IP; включать только за доверенным прокси
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" env:"HTTP_TRUST_PROXY_HEADERS" env-default:"false"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	OpTimeout    time.Duration `yaml:"op_timeout" env:"REDIS_OP_TIMEOUT" env-default:"200ms"`
	FlushOnStart bool          `yaml:"flush_on_start" env:"REDIS_FLUSH_ON_START" env-default:"false"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_EXPIRES_IN" env-default:"168h"`
}

// Password параметры хеширования паролей
type Password struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// RateLimit ограничение частоты запросов на вход
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"LOGIN_RATE_RPS" env-default:"1"`
	Burst int     `yaml:"burst" env:"LOGIN_RATE_BURST" env-default:"5"`
}

// RabbitMQ настройки публикации событий; пустой URL отключает публикацию
type RabbitMQ struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"users"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH.
// Если CONFIG_PATH не задан, конфиг собирается только из переменных окружения.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла (если путь не пустой) с переопределением через env.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	const op = "config.validate"
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%s: token_ttl must be positive", op)
	}
	if c.StorageOpTimeout < 0 {
		return fmt.Errorf("%s: storage_op_timeout must not be negative", op)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("%s: bcrypt_cost must be between 4 and 31", op)
	}
	return nil
}

// String возвращает конфиг для логов без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageOpTimeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  OpTimeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"  TrustProxyHeaders: %t\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n",
		c.Env,
		c.StorageOpTimeout,
		c.AddressRedis,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.OpTimeout,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TrustProxyHeaders,
		c.TokenTTL,
	)
}
