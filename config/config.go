package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Minio    MinioConfig    `yaml:"minio"`
	GenAI    GenAIConfig    `yaml:"genai"`
	Auth     AuthConfig     `yaml:"auth"`
	Upload   UploadConfig   `yaml:"upload"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// GenAIConfig configures the external file-search engine.
type GenAIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	UploadTimeout     time.Duration `yaml:"upload_timeout"`
	QueryTimeout      time.Duration `yaml:"query_timeout"`
	ListFilesPageSize int           `yaml:"list_files_page_size"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type UploadConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "bidding.db"
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.GenAI.BaseURL == "" {
		cfg.GenAI.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.GenAI.Model == "" {
		cfg.GenAI.Model = "gemini-flash-latest"
	}
	if cfg.GenAI.PollInterval == 0 {
		cfg.GenAI.PollInterval = 3 * time.Second
	}
	if cfg.GenAI.UploadTimeout == 0 {
		cfg.GenAI.UploadTimeout = 5 * time.Minute
	}
	if cfg.GenAI.QueryTimeout == 0 {
		cfg.GenAI.QueryTimeout = 2 * time.Minute
	}
	if cfg.GenAI.ListFilesPageSize == 0 {
		cfg.GenAI.ListFilesPageSize = 100
	}
	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 10
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
