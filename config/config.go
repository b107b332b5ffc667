// Package config resolves changescope settings from defaults, a config file,
// a .env file, environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/fs"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides: CHANGESCOPE_AGENT, CHANGESCOPE_LOG_LEVEL, ...
const EnvPrefix = "changescope"

// LocalConfigFile is read from the working directory in preference to the
// user config.
const LocalConfigFile = "changescope.yaml"

// Redacted replaces secrets in rendered configuration.
const Redacted = "********"

// DefaultTimeout bounds each model or GitHub request. A non-positive timeout
// setting falls back to it.
const DefaultTimeout = 120 * time.Second

// Option describes one configuration key.
type Option struct {
	Key     string
	Default any
	Comment string
}

// Options returns every configuration key with its default.
func Options() []Option {
	return []Option{
		{Key: "agent", Default: string(changescope.AgentOpenAI), Comment: "Model provider: openai, claude, deepseek, gemini, ollama"},
		{Key: "model", Default: "", Comment: "Model name; empty uses the provider default"},
		{Key: "timeout", Default: DefaultTimeout, Comment: "Per-call timeout for model requests"},
		{Key: "dir", Default: ".", Comment: "Directory whose files are sent to the model"},
		{Key: "extensions", Default: []string{}, Comment: "File extensions to include; empty includes every recognized language"},
		{Key: "max_file_size", Default: 256 << 10, Comment: "Files larger than this many bytes are skipped"},
		{Key: "history_limit", Default: 5, Comment: "Commits of git history included in prompts; 0 disables"},
		{Key: "prompt_template", Default: "", Comment: "Path to a custom prompt template"},
		{Key: "results_dir", Default: "results", Comment: "Root of per-session report directories"},
		{Key: "report.timestamp", Default: true, Comment: "Start structured reports with an analysis time line"},
		{Key: "cache.enabled", Default: false, Comment: "Reuse responses for identical prompts"},
		{Key: "cache.dir", Default: fs.DefaultCacheDir(), Comment: "Response cache directory"},
		{Key: "history.db", Default: filepath.Join(fs.DefaultStateDir(), "history.db"), Comment: "SQLite index of all turns"},
		{Key: "github.repo", Default: "", Comment: "owner/name to read instead of dir"},
		{Key: "github.branch", Default: "main", Comment: "Branch read from GitHub"},
		{Key: "theme", Default: "auto", Comment: "Session colors: dark, light or auto"},
		{Key: "preview.style", Default: "", Comment: "glamour style for the interactive preview; empty follows the theme"},
		{Key: "log.file", Default: filepath.Join(fs.DefaultStateDir(), "changescope.log"), Comment: "Log file; empty disables, - writes to stderr"},
		{Key: "log.level", Default: "info", Comment: "debug, info, warn or error"},
		{Key: "log.format", Default: "text", Comment: "text or json"},
	}
}

// secretEnv maps secret keys to the environment variables they are read from.
var secretEnv = map[string]string{
	"keys.openai":   "OPENAI_API_KEY",
	"keys.claude":   "ANTHROPIC_API_KEY",
	"keys.deepseek": "DEEPSEEK_API_KEY",
	"keys.gemini":   "GEMINI_API_KEY",
	"keys.github":   "GITHUB_TOKEN",
}

// Config is the resolved configuration.
type Config struct {
	Agent          string        `mapstructure:"agent"`
	Model          string        `mapstructure:"model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Dir            string        `mapstructure:"dir"`
	Extensions     []string      `mapstructure:"extensions"`
	MaxFileSize    int64         `mapstructure:"max_file_size"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	PromptTemplate string        `mapstructure:"prompt_template"`
	ResultsDir     string        `mapstructure:"results_dir"`
	Theme          string        `mapstructure:"theme"`
	Report         struct {
		Timestamp bool `mapstructure:"timestamp"`
	} `mapstructure:"report"`
	Cache struct {
		Enabled bool   `mapstructure:"enabled"`
		Dir     string `mapstructure:"dir"`
	} `mapstructure:"cache"`
	History struct {
		DB string `mapstructure:"db"`
	} `mapstructure:"history"`
	GitHub struct {
		Repo   string `mapstructure:"repo"`
		Branch string `mapstructure:"branch"`
	} `mapstructure:"github"`
	Preview struct {
		Style string `mapstructure:"style"`
	} `mapstructure:"preview"`
	Log struct {
		File   string `mapstructure:"file"`
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Keys struct {
		OpenAI   string `mapstructure:"openai"`
		Claude   string `mapstructure:"claude"`
		DeepSeek string `mapstructure:"deepseek"`
		Gemini   string `mapstructure:"gemini"`
		GitHub   string `mapstructure:"github"`
	} `mapstructure:"keys"`
}

// APIKey returns the configured key for agent. Ollama needs none.
func (c *Config) APIKey(agent changescope.Agent) string {
	switch agent {
	case changescope.AgentOpenAI:
		return c.Keys.OpenAI
	case changescope.AgentClaude:
		return c.Keys.Claude
	case changescope.AgentDeepSeek:
		return c.Keys.DeepSeek
	case changescope.AgentGemini:
		return c.Keys.Gemini
	default:
		return ""
	}
}

// DefaultConfigDir returns the directory searched for config.yaml.
func DefaultConfigDir() string {
	return fs.DefaultConfigDir()
}

// Load resolves configuration into v with precedence:
// defaults < config file < .env < environment. Flags bound by the caller
// override all of these. An explicit configPath must exist.
func Load(v *viper.Viper, configPath, envFile string) (*Config, error) {
	for _, o := range Options() {
		v.SetDefault(o.Key, o.Default)
	}

	if configPath == "" {
		if _, err := os.Stat(LocalConfigFile); err == nil {
			configPath = LocalConfigFile
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range secretEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	return Decode(v)
}

// Decode converts the current settings of v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if _, err := changescope.ParseAgent(cfg.Agent); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &cfg, nil
}

// loadEnvFile sets variables from a .env file without overriding the
// environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Render returns the effective settings of v as YAML with secrets redacted.
func Render(v *viper.Viper) (string, error) {
	settings := v.AllSettings()
	for k, val := range settings {
		if d, ok := val.(time.Duration); ok {
			settings[k] = d.String()
		}
	}
	if keys, ok := settings["keys"].(map[string]any); ok {
		for k, val := range keys {
			if s, _ := val.(string); s != "" {
				keys[k] = Redacted
			}
		}
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(out), nil
}

// RenderDefault returns a commented YAML config containing every option with
// its default value.
func RenderDefault() (string, error) {
	opts := Options()
	sections := make(map[string][]Option)
	var order []string
	var b strings.Builder
	b.WriteString("# changescope configuration\n")
	for _, o := range opts {
		section, key, nested := strings.Cut(o.Key, ".")
		if !nested {
			if err := writeYAMLOption(&b, "", o.Key, o.Default, o.Comment); err != nil {
				return "", err
			}
			continue
		}
		if _, ok := sections[section]; !ok {
			order = append(order, section)
		}
		sections[section] = append(sections[section], Option{Key: key, Default: o.Default, Comment: o.Comment})
	}
	for _, section := range order {
		b.WriteString("\n" + section + ":\n")
		for _, o := range sections[section] {
			if err := writeYAMLOption(&b, "  ", o.Key, o.Default, o.Comment); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

func writeYAMLOption(b *strings.Builder, indent, key string, value any, comment string) error {
	if d, ok := value.(time.Duration); ok {
		value = d.String()
	}
	out, err := yaml.Marshal(map[string]any{key: value})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	b.WriteString(indent + "# " + comment + "\n")
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		b.WriteString(indent + line + "\n")
	}
	return nil
}
