package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "WHOSAIDIT"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
	PublicURL   string `mapstructure:"public_url"`
}

// GameConfig tunes the round engine. Delays are presentational pacing only.
type GameConfig struct {
	DefaultRounds   int           `mapstructure:"default_rounds"`
	MaxRounds       int           `mapstructure:"max_rounds"`
	TruthBonus      int           `mapstructure:"truth_bonus"`
	QuestionDelay   time.Duration `mapstructure:"question_delay"`
	RoundDelay      time.Duration `mapstructure:"round_delay"`
	GameOverDelay   time.Duration `mapstructure:"game_over_delay"`
	QuestionsPath   string        `mapstructure:"questions_path"`
	SubjectFallback string        `mapstructure:"subject_fallback"`
	Seed            int64         `mapstructure:"seed"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.public_url", "")

	v.SetDefault("game.default_rounds", 5)
	v.SetDefault("game.max_rounds", 20)
	v.SetDefault("game.truth_bonus", 10)
	v.SetDefault("game.question_delay", 2*time.Second)
	v.SetDefault("game.round_delay", 5*time.Second)
	v.SetDefault("game.game_over_delay", 3*time.Second)
	v.SetDefault("game.questions_path", "")
	v.SetDefault("game.subject_fallback", "someone")
	v.SetDefault("game.seed", 0)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "whosaidit")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads config.yaml from path, if present, and applies
// WHOSAIDIT_* environment overrides on top of the defaults. A .env file in
// path is loaded into the process environment first.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Game.DefaultRounds < 1 {
		return fmt.Errorf("game.default_rounds must be positive: %d", c.Game.DefaultRounds)
	}
	if c.Game.MaxRounds < c.Game.DefaultRounds {
		return fmt.Errorf("game.max_rounds (%d) must be at least game.default_rounds (%d)", c.Game.MaxRounds, c.Game.DefaultRounds)
	}
	if c.Game.TruthBonus < 1 {
		return fmt.Errorf("game.truth_bonus must be positive: %d", c.Game.TruthBonus)
	}
	switch c.Database.Driver {
	case "", "memory", "postgres", "gorm":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// DSN builds a libpq-style connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DBName)
}
