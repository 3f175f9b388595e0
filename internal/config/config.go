package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds runtime configuration. Secrets (e.g. API key) are read from
// the environment or from the config dir at runtime; never committed.
type Config struct {
	// OpenRouterAPIKey is set from env OPENROUTER_API_KEY or from the config file.
	OpenRouterAPIKey string `json:"open_router_api_key"`
	// Model is the OpenRouter model id (e.g. deepseek/deepseek-v3.2).
	Model string `json:"model"`

	// ConfigDir is where the config file and prompt overrides live.
	ConfigDir string `json:"-"`
	// DBPath is the path to reflectbot.db.
	DBPath string `json:"-"`
	// PromptsDir holds prompt template overrides (<name>.txt). Embedded
	// defaults are used for any template missing from this dir.
	PromptsDir string `json:"-"`

	// DedupThreshold is the near-duplicate length-ratio threshold (default 0.9).
	DedupThreshold float64 `json:"dedup_threshold"`

	// RecentMessageWindow is how many recent user messages go into prompt context.
	RecentMessageWindow int `json:"recent_message_window"`
	// JournalWindow is how many journal entries go into prompt context.
	JournalWindow int `json:"journal_window"`

	// CheckInInterval is how often the scheduler sends state-check prompts.
	// Zero disables the scheduler.
	CheckInInterval time.Duration `json:"-"`
	// ActiveUserDays bounds which users the scheduler considers active.
	ActiveUserDays int `json:"active_user_days"`
}

// DefaultConfigDir returns the default config directory (project-local
// .reflectbot if present, else ~/.config/reflectbot).
func DefaultConfigDir() string {
	cwd, _ := os.Getwd()
	local := filepath.Join(cwd, ".reflectbot")
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "reflectbot")
}

// New builds config from env and optional config dir. ConfigDir can be empty
// to use the default. In Docker, set REFLECTBOT_CONFIG_DIR to a mounted path
// so the DB and prompt overrides persist.
func New(configDir string) *Config {
	if configDir == "" {
		if d := os.Getenv("REFLECTBOT_CONFIG_DIR"); d != "" {
			configDir = d
		} else {
			configDir = DefaultConfigDir()
		}
	}

	cfg := &Config{
		ConfigDir:           configDir,
		DBPath:              filepath.Join(configDir, "reflectbot.db"),
		PromptsDir:          filepath.Join(configDir, "prompts"),
		Model:               "deepseek/deepseek-v3.2",
		DedupThreshold:      0.9,
		RecentMessageWindow: 3,
		JournalWindow:       8,
		CheckInInterval:     3 * time.Hour,
		ActiveUserDays:      7,
	}

	loadFile(cfg)

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouterAPIKey = v
	}
	if v := os.Getenv("REFLECTBOT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("REFLECTBOT_CHECKIN_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil {
			cfg.CheckInInterval = time.Duration(h) * time.Hour
		}
	}

	return cfg
}

func (c *Config) filePath() string {
	return filepath.Join(c.ConfigDir, "config.json")
}

func loadFile(cfg *Config) {
	data, err := os.ReadFile(cfg.filePath())
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, cfg)
}

// Save writes the config file, creating the config dir if needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.ConfigDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath(), data, 0o600)
}
