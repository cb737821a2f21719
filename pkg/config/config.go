package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen          = ":3400"
	defaultTimeoutMs       = 60000
	defaultPidFile         = "/var/run/osr.pid"
	defaultEnvFile         = "./env.yaml"
	defaultCredentialsFile = "./credentials.yaml"
	defaultCacheDir        = "./cache"
	defaultReloadDebounce  = 300
)

type CORSConfig struct {
	AllowOrigin  string `yaml:"allow_origin"`
	AllowMethods string `yaml:"allow_methods"`
	AllowHeaders string `yaml:"allow_headers"`
}

type LoggingConfig struct {
	Level                 string `yaml:"level"`
	AccessLog             bool   `yaml:"access_log"`
	AccessLogPath         string `yaml:"access_log_path"`
	AccessLogFormat       string `yaml:"access_log_format"`
	AccessLogFormatPreset string `yaml:"access_log_format_preset"`

	accessLogSet bool `yaml:"-"`
}

func (c *LoggingConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawLogging struct {
		Level                 string `yaml:"level"`
		AccessLog             bool   `yaml:"access_log"`
		AccessLogPath         string `yaml:"access_log_path"`
		AccessLogFormat       string `yaml:"access_log_format"`
		AccessLogFormatPreset string `yaml:"access_log_format_preset"`
	}
	var raw rawLogging
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = LoggingConfig{
		Level:                 raw.Level,
		AccessLog:             raw.AccessLog,
		AccessLogPath:         raw.AccessLogPath,
		AccessLogFormat:       raw.AccessLogFormat,
		AccessLogFormatPreset: raw.AccessLogFormatPreset,
	}
	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if strings.TrimSpace(value.Content[i].Value) == "access_log" {
			c.accessLogSet = true
		}
	}
	return nil
}

type Config struct {
	Server struct {
		Listen         string `yaml:"listen"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		PidFile        string `yaml:"pid_file"`
	} `yaml:"server"`

	Auth struct {
		// APIKey protects the sync endpoints. Empty leaves them open, which is
		// how the endpoints are usually deployed behind an internal gateway.
		APIKey string `yaml:"api_key"`
	} `yaml:"auth"`

	Environments struct {
		// File holds source/target endpoints and entity maps.
		File string `yaml:"file"`
		// Default names the environment used when a request does not pick one.
		// Empty defers to the environments file.
		Default string `yaml:"default"`
	} `yaml:"environments"`

	Credentials struct {
		// File maps upstream host names to outbound auth headers.
		File string `yaml:"file"`
	} `yaml:"credentials"`

	Entities struct {
		// AutoReload watches the environments and credentials files.
		AutoReload struct {
			Enabled    bool `yaml:"enabled"`
			DebounceMs int  `yaml:"debounce_ms"`
		} `yaml:"auto_reload"`
	} `yaml:"entities"`

	Cache struct {
		Enabled    bool   `yaml:"enabled"`
		Dir        string `yaml:"dir"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	CORS CORSConfig `yaml:"cors"`

	Logging LoggingConfig `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with defaults and env overrides applied, for
// running without a config file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = defaultListen
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = defaultTimeoutMs
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = defaultTimeoutMs
	}
	if strings.TrimSpace(cfg.Server.PidFile) == "" {
		cfg.Server.PidFile = defaultPidFile
	}
	if strings.TrimSpace(cfg.Environments.File) == "" {
		cfg.Environments.File = defaultEnvFile
	}
	if strings.TrimSpace(cfg.Credentials.File) == "" {
		cfg.Credentials.File = defaultCredentialsFile
	}
	if cfg.Entities.AutoReload.DebounceMs <= 0 {
		cfg.Entities.AutoReload.DebounceMs = defaultReloadDebounce
	}
	if strings.TrimSpace(cfg.Cache.Dir) == "" {
		cfg.Cache.Dir = defaultCacheDir
	}
	if strings.TrimSpace(cfg.CORS.AllowOrigin) == "" {
		cfg.CORS.AllowOrigin = "*"
	}
	if strings.TrimSpace(cfg.CORS.AllowMethods) == "" {
		cfg.CORS.AllowMethods = "GET, OPTIONS"
	}
	if strings.TrimSpace(cfg.CORS.AllowHeaders) == "" {
		cfg.CORS.AllowHeaders = "*"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	// default true unless explicitly disabled
	if !cfg.Logging.accessLogSet {
		cfg.Logging.AccessLog = true
	}
}

func applyEnvOverrides(cfg *Config) {
	applyEnvServerAuthOverrides(cfg)
	applyEnvDataOverrides(cfg)
	applyEnvLoggingOverrides(cfg)
}

func applyEnvServerAuthOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OSR_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("OSR_API_KEY")); v != "" {
		cfg.Auth.APIKey = v
	}
	if n, ok := envInt("OSR_READ_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.ReadTimeoutMs = n
	}
	if n, ok := envInt("OSR_WRITE_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.WriteTimeoutMs = n
	}
	if v := strings.TrimSpace(os.Getenv("OSR_PID_FILE")); v != "" {
		cfg.Server.PidFile = v
	}
	if v := strings.TrimSpace(os.Getenv("OSR_CORS_ALLOW_ORIGIN")); v != "" {
		cfg.CORS.AllowOrigin = v
	}
}

func applyEnvDataOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OSR_ENV_FILE")); v != "" {
		cfg.Environments.File = v
	}
	if v := strings.TrimSpace(os.Getenv("OSR_ENV")); v != "" {
		cfg.Environments.Default = v
	}
	if v := strings.TrimSpace(os.Getenv("OSR_CREDENTIALS_FILE")); v != "" {
		cfg.Credentials.File = v
	}
	cfg.Entities.AutoReload.Enabled = envBool("OSR_AUTO_RELOAD_ENABLED", cfg.Entities.AutoReload.Enabled)
	if n, ok := envInt("OSR_AUTO_RELOAD_DEBOUNCE_MS"); ok {
		cfg.Entities.AutoReload.DebounceMs = n
	}
	cfg.Cache.Enabled = envBool("OSR_CACHE_ENABLED", cfg.Cache.Enabled)
	if v := strings.TrimSpace(os.Getenv("OSR_CACHE_DIR")); v != "" {
		cfg.Cache.Dir = v
	}
	if n, ok := envInt("OSR_CACHE_TTL_SECONDS"); ok {
		cfg.Cache.TTLSeconds = n
	}
}

func applyEnvLoggingOverrides(cfg *Config) {
	cfg.Logging.AccessLog = envBool("OSR_ACCESS_LOG", cfg.Logging.AccessLog)
	if v := strings.TrimSpace(os.Getenv("OSR_ACCESS_LOG_PATH")); v != "" {
		cfg.Logging.AccessLogPath = v
	}
	if v := os.Getenv("OSR_ACCESS_LOG_FORMAT"); strings.TrimSpace(v) != "" {
		cfg.Logging.AccessLogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("OSR_ACCESS_LOG_FORMAT_PRESET")); v != "" {
		cfg.Logging.AccessLogFormatPreset = v
	}
}

func validate(cfg *Config) error {
	if cfg.Entities.AutoReload.Enabled && cfg.Entities.AutoReload.DebounceMs <= 0 {
		return errors.New("entities.auto_reload.debounce_ms must be > 0 when entities.auto_reload.enabled=true")
	}
	if cfg.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must be >= 0")
	}
	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Dir) == "" {
		return errors.New("cache.dir is required when cache.enabled=true")
	}
	return nil
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
