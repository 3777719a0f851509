package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	Queue QueueConfig
}

type AppConfig struct {
	Port     string
	Env      string
	Timezone string
	LogLevel string
}

type DBConfig struct {
	Driver           string
	Host             string
	Port             string
	User             string
	Password         string
	Name             string
	Path             string
	OperationTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

type QueueConfig struct {
	AvgConsultationMinutes int
	LockTimeout            time.Duration
	SequenceBackend        string
}

const (
	SequenceBackendRedis    = "redis"
	SequenceBackendDatabase = "database"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing .env is fine, the environment alone can configure the service
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_PATH", "clinicq.db")
	v.SetDefault("DB_OPERATION_TIMEOUT", "5s")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")
	v.SetDefault("QUEUE_AVG_CONSULTATION_MINUTES", 15)
	v.SetDefault("QUEUE_LOCK_TIMEOUT", "5s")
	v.SetDefault("QUEUE_SEQUENCE_BACKEND", SequenceBackendRedis)
}

func fromViper(v *viper.Viper) *Config {
	avg := v.GetInt("QUEUE_AVG_CONSULTATION_MINUTES")
	if avg <= 0 {
		avg = 15
	}

	return &Config{
		App: AppConfig{
			Port:     v.GetString("APP_PORT"),
			Env:      v.GetString("APP_ENV"),
			Timezone: v.GetString("APP_TIMEZONE"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			Driver:           v.GetString("DB_DRIVER"),
			Host:             v.GetString("DB_HOST"),
			Port:             v.GetString("DB_PORT"),
			User:             v.GetString("DB_USER"),
			Password:         v.GetString("DB_PASSWORD"),
			Name:             v.GetString("DB_NAME"),
			Path:             v.GetString("DB_PATH"),
			OperationTimeout: durationOr(v, "DB_OPERATION_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			AccessExpiry: durationOr(v, "JWT_ACCESS_EXPIRY", 15*time.Minute),
		},
		Queue: QueueConfig{
			AvgConsultationMinutes: avg,
			LockTimeout:            durationOr(v, "QUEUE_LOCK_TIMEOUT", 5*time.Second),
			SequenceBackend:        v.GetString("QUEUE_SEQUENCE_BACKEND"),
		},
	}
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Location resolves the clinic timezone used to decide what "today" is
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
