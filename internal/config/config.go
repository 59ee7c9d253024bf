// Package config holds durgesh's configuration: where the rule table and
// recorded replies live, how replies are played, and how the native
// recognizer is set up.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Playback backends.
const (
	BackendExec   = "exec"
	BackendNative = "native"
)

// PathPlaceholder in a decoder argument is replaced with the reply file.
const PathPlaceholder = "{path}"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete configuration.
type Config struct {
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
	Chat     ChatConfig     `yaml:"chat" mapstructure:"chat"`
	Playback PlaybackConfig `yaml:"playback" mapstructure:"playback"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// RulesConfig locates the rule table.
type RulesConfig struct {
	// Tab separated rule table, optionally zstd compressed (.zst)
	Path string `yaml:"path" mapstructure:"path"`

	// Reject keys that are not SHA-1 hex digests
	Strict bool `yaml:"strict" mapstructure:"strict"`
}

// ChatConfig tunes the reply engine.
type ChatConfig struct {
	// Reply chooser: first or hashed
	Chooser string `yaml:"chooser" mapstructure:"chooser"`

	// Prompt shown by the interactive chat
	Prompt string `yaml:"prompt" mapstructure:"prompt"`
}

// PlaybackConfig describes how recorded replies are played.
type PlaybackConfig struct {
	// exec pipes a decoder into a player, native decodes and plays in-process
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Root of the recorded replies: <audio_dir>/<query>/<answer>.mp3
	AudioDir string `yaml:"audio_dir" mapstructure:"audio_dir"`

	// Decoder command; {path} is replaced with the reply file
	Decoder []string `yaml:"decoder" mapstructure:"decoder"`

	// Player command, reads decoded audio on stdin
	Player []string `yaml:"player" mapstructure:"player"`

	// Upper bound for one reply, e.g. "30s"; empty means no limit
	Timeout string `yaml:"timeout" mapstructure:"timeout"`

	// Decoded audio kept in memory by the native backend, in MB
	CacheMB int `yaml:"cache_mb" mapstructure:"cache_mb"`
}

// EngineConfig sets up the native speech recognizer.
type EngineConfig struct {
	ModelPath        string  `yaml:"model_path" mapstructure:"model_path"`
	SpeakerModelPath string  `yaml:"speaker_model_path" mapstructure:"speaker_model_path"`
	SampleRate       float64 `yaml:"sample_rate" mapstructure:"sample_rate"`

	// JSON array of phrases; empty for free-form recognition
	Grammar string `yaml:"grammar" mapstructure:"grammar"`

	// Treat the grammar as wake words instead of a phrase list
	Wake bool `yaml:"wake" mapstructure:"wake"`

	// Enable keyword spotting when loading the model and feeding audio
	KWS bool `yaml:"kws" mapstructure:"kws"`

	// Engine log verbosity: <0 quiet, 0 default, >0 verbose
	LogLevel int `yaml:"log_level" mapstructure:"log_level"`
}

// LogConfig controls durgesh's own logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Rules: RulesConfig{
			Path:   "out_hash.csv",
			Strict: true,
		},
		Chat: ChatConfig{
			Chooser: "first",
			Prompt:  "> ",
		},
		Playback: PlaybackConfig{
			Backend:  BackendExec,
			AudioDir: "audio",
			Decoder:  []string{"lame", "--decode", "{path}", "-"},
			Player:   []string{"play", "-"},
			CacheMB:  32,
		},
		Engine: EngineConfig{
			SampleRate: 16000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers every default with v so that config files and
// environment variables only need to override what they change.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("rules.strict", d.Rules.Strict)
	v.SetDefault("chat.chooser", d.Chat.Chooser)
	v.SetDefault("chat.prompt", d.Chat.Prompt)
	v.SetDefault("playback.backend", d.Playback.Backend)
	v.SetDefault("playback.audio_dir", d.Playback.AudioDir)
	v.SetDefault("playback.decoder", d.Playback.Decoder)
	v.SetDefault("playback.player", d.Playback.Player)
	v.SetDefault("playback.timeout", d.Playback.Timeout)
	v.SetDefault("playback.cache_mb", d.Playback.CacheMB)
	v.SetDefault("engine.model_path", d.Engine.ModelPath)
	v.SetDefault("engine.speaker_model_path", d.Engine.SpeakerModelPath)
	v.SetDefault("engine.sample_rate", d.Engine.SampleRate)
	v.SetDefault("engine.grammar", d.Engine.Grammar)
	v.SetDefault("engine.wake", d.Engine.Wake)
	v.SetDefault("engine.kws", d.Engine.KWS)
	v.SetDefault("engine.log_level", d.Engine.LogLevel)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads the configuration out of v, expands paths and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode configuration: %w", err)
	}

	cfg.Rules.Path = ExpandPath(cfg.Rules.Path)
	cfg.Playback.AudioDir = ExpandPath(cfg.Playback.AudioDir)
	cfg.Engine.ModelPath = ExpandPath(cfg.Engine.ModelPath)
	cfg.Engine.SpeakerModelPath = ExpandPath(cfg.Engine.SpeakerModelPath)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.Rules.Path == "" {
		return fmt.Errorf("%w: rules.path is empty", ErrInvalidConfig)
	}

	switch c.Chat.Chooser {
	case "", "first", "hashed":
	default:
		return fmt.Errorf("%w: chat.chooser must be first or hashed, got %q", ErrInvalidConfig, c.Chat.Chooser)
	}

	switch c.Playback.Backend {
	case BackendExec:
		if len(c.Playback.Decoder) == 0 || c.Playback.Decoder[0] == "" {
			return fmt.Errorf("%w: playback.decoder is empty", ErrInvalidConfig)
		}
		if !HasPathPlaceholder(c.Playback.Decoder) {
			return fmt.Errorf("%w: playback.decoder must pass the reply file as %s", ErrInvalidConfig, PathPlaceholder)
		}
		if len(c.Playback.Player) == 0 || c.Playback.Player[0] == "" {
			return fmt.Errorf("%w: playback.player is empty", ErrInvalidConfig)
		}
	case BackendNative:
	default:
		return fmt.Errorf("%w: playback.backend must be %s or %s, got %q",
			ErrInvalidConfig, BackendExec, BackendNative, c.Playback.Backend)
	}

	if _, err := c.Playback.TimeoutDuration(); err != nil {
		return fmt.Errorf("%w: playback.timeout: %v", ErrInvalidConfig, err)
	}
	if c.Playback.CacheMB < 0 || c.Playback.CacheMB > 4096 {
		return fmt.Errorf("%w: playback.cache_mb must be between 0 and 4096, got %d", ErrInvalidConfig, c.Playback.CacheMB)
	}

	if c.Engine.SampleRate <= 0 {
		return fmt.Errorf("%w: engine.sample_rate must be positive, got %g", ErrInvalidConfig, c.Engine.SampleRate)
	}
	if c.Engine.Wake && c.Engine.Grammar == "" {
		return fmt.Errorf("%w: engine.wake needs engine.grammar", ErrInvalidConfig)
	}
	if c.Engine.Wake && c.Engine.SpeakerModelPath != "" {
		return fmt.Errorf("%w: engine.wake cannot be combined with a speaker model", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}

	return nil
}

// HasPathPlaceholder reports whether an argument of argv, other than the
// program itself, contains PathPlaceholder.
func HasPathPlaceholder(argv []string) bool {
	for i, a := range argv {
		if i > 0 && strings.Contains(a, PathPlaceholder) {
			return true
		}
	}
	return false
}

// TimeoutDuration parses Timeout. An empty value means no limit.
func (p PlaybackConfig) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", p.Timeout)
	}
	return d, nil
}

// CacheBytes returns the native backend's cache capacity in bytes.
func (p PlaybackConfig) CacheBytes() int64 {
	return int64(p.CacheMB) * 1024 * 1024
}

// YAML renders c as a YAML document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
