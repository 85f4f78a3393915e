package config

import (
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	SessionDriverMemory   = "memory"
	SessionDriverRedis    = "redis"
	SessionDriverPostgres = "postgres"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Audiocodes AudiocodesConfig
	Chatbot    ChatbotConfig
	Chat       ChatConfig
	Lang       LangConfig
}

type AppConfig struct {
	Port              string `validate:"required"`
	Environment       string
	LogFilePath       string `validate:"required"`
	AuditLogFilePath  string `validate:"required"`
	NatsURL           string
	RedisURL          string `validate:"required_if=SessionDriver redis"`
	SessionDriver     string `validate:"oneof=memory redis postgres"`
	SessionTTLMinutes int    `validate:"gt=0"`
}

type DatabaseConfig struct {
	Connection string
}

type AudiocodesConfig struct {
	AuthType       string `validate:"required"`
	Token          string `validate:"required"`
	ExpiresSeconds int    `validate:"gt=0"`
}

type ChatbotConfig struct {
	APIKey         string `validate:"required"`
	Secret         string `validate:"required"`
	AuthURL        string `validate:"required,url"`
	Environment    string `validate:"required"`
	UserType       string
	Source         string
	TimeoutSeconds int `validate:"gt=0"`
}

type ChatConfig struct {
	Enabled            bool
	Address            string `validate:"required_if=Enabled true"`
	EscalationMode     string `validate:"oneof=ask direct"`
	NoResultsThreshold int    `validate:"gte=0"`
}

type LangConfig struct {
	Language         string `validate:"required"`
	TranslationsPath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:              getEnv("APP_PORT", "3000"),
			Environment:       getEnv("GO_ENV", "development"),
			LogFilePath:       getEnv("LOG_FILE_PATH", "app.log"),
			AuditLogFilePath:  getEnv("AUDIT_LOG_FILE_PATH", "audit.log"),
			NatsURL:           getEnv("NATS_URL", ""),
			RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionDriver:     getEnv("SESSION_DRIVER", SessionDriverMemory),
			SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 30),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Audiocodes: AudiocodesConfig{
			AuthType:       getEnv("AUDIOCODES_AUTH_TYPE", "Bearer"),
			Token:          getEnv("AUDIOCODES_TOKEN", ""),
			ExpiresSeconds: getEnvAsInt("AUDIOCODES_EXPIRES_SECONDS", 120),
		},
		Chatbot: ChatbotConfig{
			APIKey:         getEnv("CHATBOT_API_KEY", ""),
			Secret:         getEnv("CHATBOT_API_SECRET", ""),
			AuthURL:        getEnv("CHATBOT_AUTH_URL", "https://api.inbenta.io/v1/auth"),
			Environment:    getEnv("CHATBOT_ENVIRONMENT", "development"),
			UserType:       getEnv("CHATBOT_USER_TYPE", "0"),
			Source:         getEnv("CHATBOT_SOURCE", "audiocodes"),
			TimeoutSeconds: getEnvAsInt("CHATBOT_TIMEOUT_SECONDS", 10),
		},
		Chat: ChatConfig{
			Enabled:            getEnvAsBool("CHAT_ENABLED", false),
			Address:            getEnv("CHAT_ADDRESS", ""),
			EscalationMode:     getEnv("CHAT_ESCALATION_MODE", "ask"),
			NoResultsThreshold: getEnvAsInt("CHAT_NO_RESULTS_THRESHOLD", 3),
		},
		Lang: LangConfig{
			Language:         getEnv("LANGUAGE", "en"),
			TranslationsPath: getEnv("TRANSLATIONS_PATH", ""),
		},
	}
}

// Validate checks the loaded values before any component is built from them.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if c.App.SessionDriver == SessionDriverPostgres && c.Database.Connection == "" {
		return &MissingSettingError{Key: "DB_CONNECTION_STRING"}
	}
	return nil
}

type MissingSettingError struct {
	Key string
}

func (e *MissingSettingError) Error() string {
	return e.Key + " is required"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
