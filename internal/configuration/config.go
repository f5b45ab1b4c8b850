package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	// ConfigPathEnv names the variable holding the config file path.
	ConfigPathEnv     = "WISPR_CONFIG"
	defaultConfigPath = "config.json"
)

type MongoConfig struct {
	Uri                string `json:"uri" env:"WISPR_MONGO_URI"`
	Database           string `json:"database" env:"WISPR_MONGO_DATABASE"`
	UsersCollection    string `json:"usersCollection" env:"WISPR_MONGO_USERS_COLLECTION"`
	ChatsCollection    string `json:"chatsCollection" env:"WISPR_MONGO_CHATS_COLLECTION"`
	MessagesCollection string `json:"messagesCollection" env:"WISPR_MONGO_MESSAGES_COLLECTION"`
}

type ServerConfig struct {
	AppPort         int      `json:"app_port" env:"WISPR_APP_PORT" validate:"min=1,max=65535"`
	SocketPort      int      `json:"socket_port" env:"WISPR_SOCKET_PORT" validate:"min=1,max=65535,nefield=AppPort"`
	SocketRoute     string   `json:"socketRoute" env:"WISPR_SOCKET_ROUTE" validate:"required"`
	AllowedOrigins  []string `json:"allowedOrigins"`
	ShutdownSeconds int      `json:"shutdownSeconds" env:"WISPR_SHUTDOWN_SECONDS" validate:"min=1"`
}

type EngineConfig struct {
	BackupProgressStep int `json:"backupProgressStep" env:"WISPR_BACKUP_PROGRESS_STEP" validate:"min=1,max=100"`
}

type LogConfig struct {
	Level       string `json:"level" env:"WISPR_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `json:"development" env:"WISPR_LOG_DEVELOPMENT"`
}

type StorageConfig struct {
	Driver string `json:"driver" env:"WISPR_STORAGE_DRIVER" validate:"oneof=mongo memory"`
}

type Config struct {
	ChatDatabase MongoConfig   `json:"mongo"`
	Server       ServerConfig  `json:"server"`
	Engine       EngineConfig  `json:"engine"`
	Log          LogConfig     `json:"log"`
	Storage      StorageConfig `json:"storage"`
}

func defaultConfig() Config {
	return Config{
		ChatDatabase: MongoConfig{
			Database:           "wispr",
			UsersCollection:    "users",
			ChatsCollection:    "chats",
			MessagesCollection: "messages",
		},
		Server: ServerConfig{
			AppPort:         8080,
			SocketPort:      8081,
			SocketRoute:     "ws",
			AllowedOrigins:  []string{"http://localhost:5173"},
			ShutdownSeconds: 30,
		},
		Engine:  EngineConfig{BackupProgressStep: 5},
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Driver: DriverMongo},
	}
}

// ConfigPath returns the config file named by WISPR_CONFIG, or config.json.
func ConfigPath() string {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// LoadConfig reads the JSON file over the defaults, loads .env, applies
// environment overrides and validates the result.
func LoadConfig(config_path string) (*Config, error) {
	config := defaultConfig()

	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", config_path, err)
	}

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	sections := []any{&config.ChatDatabase, &config.Server, &config.Engine, &config.Log, &config.Storage}
	for _, section := range sections {
		if _, err = env.UnmarshalFromEnviron(section); err != nil {
			return nil, fmt.Errorf("environment overrides: %w", err)
		}
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Driver == DriverMongo {
		m := c.ChatDatabase
		if m.Uri == "" || m.Database == "" || m.UsersCollection == "" || m.ChatsCollection == "" || m.MessagesCollection == "" {
			return errors.New("invalid config: mongo storage needs uri, database and collection names")
		}
	}
	return nil
}

// ShutdownTimeout is the grace period for draining connections on exit.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
