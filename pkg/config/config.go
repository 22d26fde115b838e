// Package config loads build settings from a YAML file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/japaniel/kanjilab/pkg/logging"
)

// DefaultGUID identifies the JMDict build.
const DefaultGUID = "a5ecf9a5-7a0e-4858-8122-62365f3f8965"

// Config holds the build settings.
type Config struct {
	DBPath        string `yaml:"db_path"        env:"KANJILAB_DB_PATH"        env-default:"dict.db"`
	LexiconPath   string `yaml:"lexicon_path"   env:"KANJILAB_LEXICON_PATH"   env-default:"data/JMdict_e.gz"`
	FuriganaPath  string `yaml:"furigana_path"  env:"KANJILAB_FURIGANA_PATH"  env-default:"data/JmdictFurigana.json"`
	FrequencyPath string `yaml:"frequency_path" env:"KANJILAB_FREQUENCY_PATH" env-default:"data/frequency.json"`

	// Fresh removes the database file before building.
	Fresh bool `yaml:"fresh" env:"KANJILAB_FRESH"`

	Dictionary Dictionary `yaml:"dictionary"`
	Lexicon    Lexicon    `yaml:"lexicon"`

	BatchSize     int `yaml:"batch_size"     env:"KANJILAB_BATCH_SIZE"     env-default:"500"`
	ProgressEvery int `yaml:"progress_every" env:"KANJILAB_PROGRESS_EVERY" env-default:"50000"`

	Log logging.Config `yaml:"log"`
}

// Dictionary describes the metadata row written at the start of a build.
type Dictionary struct {
	Name        string       `yaml:"name"        env:"KANJILAB_DICT_NAME"        env-default:"JMDict"`
	GUID        string       `yaml:"guid"        env:"KANJILAB_DICT_GUID"        env-default:"a5ecf9a5-7a0e-4858-8122-62365f3f8965"`
	Description string       `yaml:"description" env:"KANJILAB_DICT_DESCRIPTION" env-default:"JMDict dictionary"`
	Stats       *StatsConfig `yaml:"stats_config"`
}

// StatsConfig is stored verbatim as JSON for the consuming application.
type StatsConfig struct {
	FrequencyValues []int   `yaml:"frequency_values" json:"frequencyValues"`
	Medals          []Medal `yaml:"medals"           json:"medals"`
}

// Medal is one achievement tier of the stats display.
type Medal struct {
	Value  int    `yaml:"value"  json:"value"`
	Color  string `yaml:"color"  json:"color"`
	Points int    `yaml:"points" json:"points"`
}

// Lexicon tunes which JMdict entries and readings are imported.
type Lexicon struct {
	FilterTags          []string `yaml:"filter_tags"           env:"KANJILAB_FILTER_TAGS"           env-separator:","`
	ExcludeTags         []string `yaml:"exclude_tags"          env:"KANJILAB_EXCLUDE_TAGS"          env-separator:","`
	SkipNoKanjiReadings bool     `yaml:"skip_nokanji_readings" env:"KANJILAB_SKIP_NOKANJI_READINGS"`
}

// DefaultStatsConfig returns the frequency buckets and medal tiers used when
// the config file does not define any.
func DefaultStatsConfig() *StatsConfig {
	return &StatsConfig{
		FrequencyValues: []int{1000, 2500, 5000, 10000, 20000, 30000, 50000, 100000},
		Medals: []Medal{
			{Value: 0, Color: "#gray", Points: 0},
			{Value: 5, Color: "#cd7f32", Points: 1},
			{Value: 15, Color: "#c0c0c0", Points: 2},
			{Value: 50, Color: "#ffd700", Points: 3},
			{Value: 100, Color: "#b9f2ff", Points: 5},
		},
	}
}

// StatsJSON renders the stats configuration for storage.
func (d Dictionary) StatsJSON() (string, error) {
	if d.Stats == nil {
		return "", nil
	}
	b, err := json.Marshal(d.Stats)
	if err != nil {
		return "", fmt.Errorf("encode stats config: %w", err)
	}
	return string(b), nil
}

// Load reads configuration from path, or from the environment alone when
// path is empty. Priority: ENV > YAML > defaults (via env-default tags).
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s not found", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if cfg.Dictionary.Stats == nil {
		cfg.Dictionary.Stats = DefaultStatsConfig()
	}
	return &cfg, nil
}

// Validate checks the settings a build needs.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.LexiconPath == "" {
		errs = append(errs, errors.New("lexicon_path is required"))
	}
	if c.FuriganaPath == "" {
		errs = append(errs, errors.New("furigana_path is required"))
	}
	if c.FrequencyPath == "" {
		errs = append(errs, errors.New("frequency_path is required"))
	}
	if c.Dictionary.Name == "" {
		errs = append(errs, errors.New("dictionary.name is required"))
	}
	if _, err := uuid.Parse(c.Dictionary.GUID); err != nil {
		errs = append(errs, fmt.Errorf("dictionary.guid: %w", err))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.ProgressEvery < 0 {
		errs = append(errs, fmt.Errorf("progress_every must not be negative, got %d", c.ProgressEvery))
	}
	return errors.Join(errs...)
}
