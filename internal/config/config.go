// Package config reads server settings from overworld.yaml, .env files and
// OVERWORLD_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"overworld/internal/game"
)

type SSH struct {
	Addr    string `mapstructure:"addr"`
	HostKey string `mapstructure:"host_key"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

type Assets struct {
	Root       string `mapstructure:"root"`
	MapsDir    string `mapstructure:"maps_dir"`
	Layouts    string `mapstructure:"layouts"`
	SpritesDir string `mapstructure:"sprites_dir"`
}

type View struct {
	TilesX int `mapstructure:"tiles_x"`
	TilesY int `mapstructure:"tiles_y"`
	Scale  int `mapstructure:"scale"`
}

type Move struct {
	Speed         float64 `mapstructure:"speed"`
	RunMultiplier float64 `mapstructure:"run_multiplier"`
}

type Save struct {
	Path              string `mapstructure:"path"`
	AutosaveSeconds   int    `mapstructure:"autosave_seconds"`
	CheckpointSeconds int    `mapstructure:"checkpoint_seconds"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type Cache struct {
	MaxCostMB int `mapstructure:"max_cost_mb"`
}

// Config is the full server configuration.
type Config struct {
	SSH    SSH    `mapstructure:"ssh"`
	HTTP   HTTP   `mapstructure:"http"`
	Assets Assets `mapstructure:"assets"`
	View   View   `mapstructure:"view"`
	Move   Move   `mapstructure:"move"`
	Save   Save   `mapstructure:"save"`
	Log    Log    `mapstructure:"log"`
	Cache  Cache  `mapstructure:"cache"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ssh.addr", ":2222")
	v.SetDefault("ssh.host_key", ".ssh/overworld_host_key")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("assets.root", "assets")
	v.SetDefault("assets.maps_dir", "maps")
	v.SetDefault("assets.layouts", "data/layouts/layouts.json")
	v.SetDefault("assets.sprites_dir", "sprites")
	v.SetDefault("view.tiles_x", 20)
	v.SetDefault("view.tiles_y", 15)
	v.SetDefault("view.scale", 2)
	v.SetDefault("move.speed", game.DefaultMoveSpeed)
	v.SetDefault("move.run_multiplier", game.DefaultRunMultiplier)
	v.SetDefault("save.path", "overworld.db")
	v.SetDefault("save.autosave_seconds", int(game.DefaultAutosaveEvery/time.Second))
	v.SetDefault("save.checkpoint_seconds", int(game.DefaultCheckpointEvery/time.Second))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("cache.max_cost_mb", 64)
}

// Load reads the configuration. file names a config file explicitly;
// otherwise overworld.yaml is searched for in . and ./config and may be
// absent. envFiles default to .env; missing ones are skipped.
func Load(file string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("OVERWORLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("overworld")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.View.TilesX <= 0 || c.View.TilesY <= 0 {
		errs = append(errs, fmt.Errorf("view size %dx%d must be positive", c.View.TilesX, c.View.TilesY))
	}
	if c.View.Scale <= 0 {
		errs = append(errs, fmt.Errorf("view.scale %d must be positive", c.View.Scale))
	}
	if c.Move.Speed <= 0 {
		errs = append(errs, fmt.Errorf("move.speed %v must be positive", c.Move.Speed))
	}
	if c.Save.AutosaveSeconds <= 0 || c.Save.CheckpointSeconds <= 0 {
		errs = append(errs, errors.New("save intervals must be positive"))
	}
	return errors.Join(errs...)
}

// Engine converts the settings into per-session engine config.
func (c *Config) Engine() game.Config {
	return game.Config{
		ViewTilesX:      c.View.TilesX,
		ViewTilesY:      c.View.TilesY,
		Scale:           c.View.Scale,
		MoveSpeed:       c.Move.Speed,
		RunMultiplier:   c.Move.RunMultiplier,
		AutosaveEvery:   time.Duration(c.Save.AutosaveSeconds) * time.Second,
		CheckpointEvery: time.Duration(c.Save.CheckpointSeconds) * time.Second,
	}
}

// CacheBytes is the sheet cache budget in bytes.
func (c *Config) CacheBytes() int64 {
	return int64(c.Cache.MaxCostMB) << 20
}
