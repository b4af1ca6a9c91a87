package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv                string
	AppPort               string
	AllowedOrigins        string
	LogLevel              string
	DBDriver              string
	DBPath                string
	DBHost                string
	DBPort                string
	DBUser                string
	DBPassword            string
	DBName                string
	DBMaxIdleConns        int
	DBMaxOpenConns        int
	JWTSecret             string
	JWTExpirationHours    int
	NatsURL               string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthRateLimit         int
	AuthRateWindowSeconds int
}

var defaults = map[string]interface{}{
	"APP_ENV":                  "development",
	"APP_PORT":                 "5000",
	"ALLOWED_ORIGINS":          "*",
	"LOG_LEVEL":                "info",
	"DB_DRIVER":                "sqlite",
	"DB_PATH":                  "data/studytrack.db",
	"DB_HOST":                  "localhost",
	"DB_PORT":                  "5432",
	"DB_USER":                  "studytrack",
	"DB_PASSWORD":              "studytrack",
	"DB_NAME":                  "studytrack",
	"DB_MAX_IDLE_CONNS":        10,
	"DB_MAX_OPEN_CONNS":        100,
	"JWT_SECRET":               "your-super-secret-key-change-this-in-production",
	"JWT_EXPIRATION_HOURS":     168,
	"NATS_URL":                 "",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"AUTH_RATE_LIMIT":          20,
	"AUTH_RATE_WINDOW_SECONDS": 60,
}

// Load reads configuration from the environment, an optional .env file and
// an optional config.yaml in the working directory. Environment wins.
func Load() Config {
	logrus.Info("Loading configuration...")

	// .env is optional; existing environment variables are not overridden.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err == nil {
		logrus.Infof("Using config file %s", v.ConfigFileUsed())
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	return Config{
		AppEnv:                v.GetString("APP_ENV"),
		AppPort:               v.GetString("APP_PORT"),
		AllowedOrigins:        v.GetString("ALLOWED_ORIGINS"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		DBDriver:              strings.ToLower(v.GetString("DB_DRIVER")),
		DBPath:                v.GetString("DB_PATH"),
		DBHost:                v.GetString("DB_HOST"),
		DBPort:                v.GetString("DB_PORT"),
		DBUser:                v.GetString("DB_USER"),
		DBPassword:            v.GetString("DB_PASSWORD"),
		DBName:                v.GetString("DB_NAME"),
		DBMaxIdleConns:        getInt(v, "DB_MAX_IDLE_CONNS"),
		DBMaxOpenConns:        getInt(v, "DB_MAX_OPEN_CONNS"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		JWTExpirationHours:    getInt(v, "JWT_EXPIRATION_HOURS"),
		NatsURL:               v.GetString("NATS_URL"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisDB:               getInt(v, "REDIS_DB"),
		AuthRateLimit:         getInt(v, "AUTH_RATE_LIMIT"),
		AuthRateWindowSeconds: getInt(v, "AUTH_RATE_WINDOW_SECONDS"),
	}
}

// getInt falls back to the default when the configured value is not an integer.
func getInt(v *viper.Viper, key string) int {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		def := defaults[key].(int)
		logrus.Warnf("Invalid integer value for %s, defaulting to %d", key, def)
		return def
	}
	return n
}

// DSN builds the PostgreSQL connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
	)
}

// IsProduction reports whether the app runs with production defaults.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
