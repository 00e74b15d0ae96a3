package usercfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"anrbot/internal/errors"
	"anrbot/internal/logger"
)

// ErrNotConfigured is returned when no config file exists.
var ErrNotConfigured = fmt.Errorf("anrbot is not configured; run: anrbot setup")

// IsConfigured returns true if a config file exists or the bot credentials
// come from the environment.
func IsConfigured() bool {
	if os.Getenv("ANRBOT_REDDIT_USERNAME") != "" && os.Getenv("ANRBOT_REDDIT_PASSWORD") != "" {
		return true
	}
	for _, path := range []string{Path(), LegacyPath()} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

type Config struct {
	SchemaVersion     int    `toml:"schema_version,omitempty"`
	StateDir          string `toml:"state_dir"`
	BotName           string `toml:"bot_name,omitempty"`
	CatalogURL        string `toml:"catalog_url"`
	CardPageTemplate  string `toml:"card_page_template"`
	Footer            string `toml:"footer"`
	AbbreviationsPage string `toml:"abbreviations_page"`
	StatusPage        string `toml:"status_page"`

	Reddit  RedditConfig  `toml:"reddit"`
	Reply   ReplyConfig   `toml:"reply"`
	Suggest SuggestConfig `toml:"suggest"`
}

type RedditConfig struct {
	ClientID          string `toml:"client_id"`
	ClientSecret      string `toml:"client_secret,omitempty"`
	Username          string `toml:"username"`
	Password          string `toml:"password,omitempty"`
	UserAgent         string `toml:"user_agent,omitempty"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// ReplyConfig is the rate-limit retry policy. MaxAttempts 0 retries forever.
type ReplyConfig struct {
	Backoff     string `toml:"backoff"`
	MaxAttempts int    `toml:"max_attempts"`
}

type SuggestConfig struct {
	Limit         int     `toml:"limit"`
	MinSimilarity float64 `toml:"min_similarity"`
	Algorithm     string  `toml:"algorithm"`
}

const CurrentSchemaVersion = 1

func Path() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "anrbot", "config.toml")
}

func LegacyPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "anrbot.toml")
}

// existingPath returns whichever config file is present, preferring Path.
func existingPath() (path string, legacy bool, err error) {
	configPath := Path()
	legacyPath := LegacyPath()
	if configPath == "" || legacyPath == "" {
		return "", false, fmt.Errorf("unable to determine home directory")
	}
	if _, err := os.Stat(configPath); err == nil {
		return configPath, false, nil
	}
	if _, err := os.Stat(legacyPath); err == nil {
		return legacyPath, true, nil
	}
	return "", false, ErrNotConfigured
}

func Load() (Config, error) {
	actualPath, warnLegacy, err := existingPath()
	if err == ErrNotConfigured {
		return getDefaults(), ErrNotConfigured
	}
	if err != nil {
		return getDefaults(), errors.NewConfigError("load", err)
	}

	var config Config
	if _, err := toml.DecodeFile(actualPath, &config); err != nil {
		return getDefaults(), errors.NewConfigError("load", fmt.Errorf("failed to decode config file: %v", err))
	}
	logger.Config("loaded %s", actualPath)

	if warnLegacy {
		fmt.Fprintf(os.Stderr, "Warning: Using legacy config path %s. Consider moving to %s\n", LegacyPath(), Path())
	}

	return mergeWithDefaults(migrateConfig(config)), nil
}

// Save writes the config with owner-only permissions since it can hold the
// bot's Reddit password.
func Save(config Config) error {
	configPath := Path()
	if configPath == "" {
		return fmt.Errorf("unable to determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	file, err := os.OpenFile(configPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}
	return nil
}

func GetRuntimeConfig() Config {
	config, err := Load()
	if err != nil && err != ErrNotConfigured {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		config = getDefaults()
	}
	return applyEnvOverlays(config)
}

// mergeWithDefaults fills every unset field. Credentials and the bot name
// stay empty; the bot name is then discovered from the account.
func mergeWithDefaults(config Config) Config {
	d := getDefaults()
	config.SchemaVersion = CurrentSchemaVersion

	if config.StateDir == "" {
		config.StateDir = d.StateDir
	}
	if config.CatalogURL == "" {
		config.CatalogURL = d.CatalogURL
	}
	if config.CardPageTemplate == "" {
		config.CardPageTemplate = d.CardPageTemplate
	}
	if config.Footer == "" {
		config.Footer = d.Footer
	}
	if config.AbbreviationsPage == "" {
		config.AbbreviationsPage = d.AbbreviationsPage
	}
	if config.StatusPage == "" {
		config.StatusPage = d.StatusPage
	}
	if config.Reddit.RequestsPerMinute <= 0 {
		config.Reddit.RequestsPerMinute = d.Reddit.RequestsPerMinute
	}
	if config.Reply.Backoff == "" {
		config.Reply.Backoff = d.Reply.Backoff
	}
	if config.Suggest.Limit <= 0 {
		config.Suggest.Limit = d.Suggest.Limit
	}
	if config.Suggest.MinSimilarity <= 0 {
		config.Suggest.MinSimilarity = d.Suggest.MinSimilarity
	}
	if config.Suggest.Algorithm == "" {
		config.Suggest.Algorithm = d.Suggest.Algorithm
	}
	return config
}

func applyEnvOverlays(config Config) Config {
	overlays := []struct {
		env    string
		target *string
	}{
		{"ANRBOT_STATE_DIR", &config.StateDir},
		{"ANRBOT_BOT_NAME", &config.BotName},
		{"ANRBOT_CATALOG_URL", &config.CatalogURL},
		{"ANRBOT_REDDIT_CLIENT_ID", &config.Reddit.ClientID},
		{"ANRBOT_REDDIT_CLIENT_SECRET", &config.Reddit.ClientSecret},
		{"ANRBOT_REDDIT_USERNAME", &config.Reddit.Username},
		{"ANRBOT_REDDIT_PASSWORD", &config.Reddit.Password},
	}
	for _, o := range overlays {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
			logger.Config("%s overridden from environment", o.env)
		}
	}
	return config
}

// migrateConfig performs in-memory migration of config from older schema versions
func migrateConfig(config Config) Config {
	if config.SchemaVersion == 0 {
		// Unversioned files already have the current layout.
		config.SchemaVersion = 1
		if config.StateDir != "" || config.Reddit.Username != "" || config.CatalogURL != "" {
			fmt.Fprintf(os.Stderr, "Info: Migrated config from schema version 0 to %d\n", config.SchemaVersion)
		}
	}
	return config
}

// MigrateAndSave loads the config, applies migrations, and saves it back to
// disk. Used by `anrbot config migrate`.
func MigrateAndSave() error {
	actualPath, _, err := existingPath()
	if err == ErrNotConfigured {
		return fmt.Errorf("no config file found to migrate")
	}
	if err != nil {
		return err
	}

	var rawConfig Config
	if _, err := toml.DecodeFile(actualPath, &rawConfig); err != nil {
		return fmt.Errorf("failed to decode config file: %v", err)
	}

	originalVersion := rawConfig.SchemaVersion
	if originalVersion == CurrentSchemaVersion {
		return fmt.Errorf("config is already at current schema version %d", CurrentSchemaVersion)
	}

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load config for migration: %v", err)
	}
	if err := Save(config); err != nil {
		return fmt.Errorf("failed to save migrated config: %v", err)
	}

	fmt.Printf("Successfully migrated config from schema version %d to %d\n", originalVersion, config.SchemaVersion)
	return nil
}

// StatePath joins name onto the state directory.
func (c Config) StatePath(name string) string {
	return filepath.Join(c.StateDir, name)
}

// ReplyBackoff parses the configured pause between rate-limited attempts.
func (c Config) ReplyBackoff() (time.Duration, error) {
	d, err := time.ParseDuration(c.Reply.Backoff)
	if err != nil {
		return 0, fmt.Errorf("reply.backoff: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("reply.backoff must be positive, got %s", c.Reply.Backoff)
	}
	return d, nil
}

// Keys lists what `config get` and `config set` accept.
var Keys = []string{
	"state_dir", "bot_name", "catalog_url", "card_page_template", "footer",
	"abbreviations_page", "status_page",
	"reddit.client_id", "reddit.client_secret", "reddit.username", "reddit.password",
	"reddit.user_agent", "reddit.requests_per_minute",
	"reply.backoff", "reply.max_attempts",
	"suggest.limit", "suggest.min_similarity", "suggest.algorithm",
	"schema_version",
}

// Get returns a config value by key. Secrets are masked.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "state_dir":
		return c.StateDir, nil
	case "bot_name":
		return c.BotName, nil
	case "catalog_url":
		return c.CatalogURL, nil
	case "card_page_template":
		return c.CardPageTemplate, nil
	case "footer":
		return c.Footer, nil
	case "abbreviations_page":
		return c.AbbreviationsPage, nil
	case "status_page":
		return c.StatusPage, nil
	case "reddit.client_id":
		return c.Reddit.ClientID, nil
	case "reddit.client_secret":
		return mask(c.Reddit.ClientSecret), nil
	case "reddit.username":
		return c.Reddit.Username, nil
	case "reddit.password":
		return mask(c.Reddit.Password), nil
	case "reddit.user_agent":
		return c.Reddit.UserAgent, nil
	case "reddit.requests_per_minute":
		return strconv.Itoa(c.Reddit.RequestsPerMinute), nil
	case "reply.backoff":
		return c.Reply.Backoff, nil
	case "reply.max_attempts":
		return strconv.Itoa(c.Reply.MaxAttempts), nil
	case "suggest.limit":
		return strconv.Itoa(c.Suggest.Limit), nil
	case "suggest.min_similarity":
		return strconv.FormatFloat(c.Suggest.MinSimilarity, 'f', -1, 64), nil
	case "suggest.algorithm":
		return c.Suggest.Algorithm, nil
	case "schema_version":
		return strconv.Itoa(c.SchemaVersion), nil
	}
	return "", fmt.Errorf("unknown key: %s (available: %s)", key, strings.Join(Keys, ", "))
}

// Set validates and stores a config value by key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "state_dir":
		c.StateDir = value
	case "bot_name":
		c.BotName = value
	case "catalog_url":
		if !isHTTPURL(value) {
			return fmt.Errorf("invalid catalog URL: %s (must start with http:// or https://)", value)
		}
		c.CatalogURL = value
	case "card_page_template":
		if !strings.Contains(value, "{code}") {
			return fmt.Errorf("card_page_template must contain {code}")
		}
		c.CardPageTemplate = value
	case "footer":
		c.Footer = value
	case "abbreviations_page":
		c.AbbreviationsPage = value
	case "status_page":
		c.StatusPage = value
	case "reddit.client_id":
		c.Reddit.ClientID = value
	case "reddit.client_secret":
		c.Reddit.ClientSecret = value
	case "reddit.username":
		c.Reddit.Username = value
	case "reddit.password":
		c.Reddit.Password = value
	case "reddit.user_agent":
		c.Reddit.UserAgent = value
	case "reddit.requests_per_minute":
		n, err := positiveInt(value)
		if err != nil {
			return fmt.Errorf("reddit.requests_per_minute: %w", err)
		}
		c.Reddit.RequestsPerMinute = n
	case "reply.backoff":
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("reply.backoff must be a positive duration such as 30s")
		}
		c.Reply.Backoff = value
	case "reply.max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("reply.max_attempts must be 0 (unlimited) or a positive number")
		}
		c.Reply.MaxAttempts = n
	case "suggest.limit":
		n, err := positiveInt(value)
		if err != nil {
			return fmt.Errorf("suggest.limit: %w", err)
		}
		c.Suggest.Limit = n
	case "suggest.min_similarity":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("suggest.min_similarity must be in (0, 1]")
		}
		c.Suggest.MinSimilarity = f
	case "suggest.algorithm":
		c.Suggest.Algorithm = value
	case "schema_version":
		return fmt.Errorf("key 'schema_version' cannot be set; use: anrbot config migrate")
	default:
		return fmt.Errorf("unknown key: %s (available: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer, got %q", s)
	}
	return n, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
