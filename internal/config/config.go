package config

import (
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "OFFICE_TOOLS_"

// Insert flag policies for word_insert.
const (
	InsertFlagReject = "reject"
	InsertFlagAppend = "append"
)

// MailConfig holds the SMTP submission settings for send_email.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SSL        bool
	TimeoutSec int
}

// Configured reports whether enough is set to submit mail.
func (m MailConfig) Configured() bool {
	return m.Host != "" && m.From != ""
}

// Config holds all configurable values for the server.
type Config struct {
	Transport           string
	Port                int
	MaxFileSizeMB       int
	OperationTimeoutSec int
	LogLevel            string
	LockDir             string
	AllowedRoots        []string
	InsertFlagPolicy    string
	SearchScope         string
	Mail                MailConfig
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Transport:           "stdio",
		Port:                8080,
		MaxFileSizeMB:       10,
		OperationTimeoutSec: 30,
		LogLevel:            "info",
		LockDir:             filepath.Join(os.TempDir(), "office-tools-locks"),
		InsertFlagPolicy:    InsertFlagReject,
		SearchScope:         "forward",
		Mail: MailConfig{
			Port:       465,
			SSL:        true,
			TimeoutSec: 30,
		},
	}
}

// MaxFileSizeBytes returns the size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

type fileMailConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	From       string `toml:"from"`
	SSL        bool   `toml:"ssl"`
	TimeoutSec int    `toml:"timeout_sec"`
}

type fileConfig struct {
	Transport        string         `toml:"transport"`
	Port             int            `toml:"port"`
	MaxFileSizeMB    int            `toml:"max_file_size_mb"`
	Timeout          int            `toml:"timeout"`
	LogLevel         string         `toml:"log_level"`
	LockDir          string         `toml:"lock_dir"`
	AllowedRoots     []string       `toml:"allowed_roots"`
	InsertFlagPolicy string         `toml:"insert_flag_policy"`
	SearchScope      string         `toml:"search_scope"`
	Mail             fileMailConfig `toml:"mail"`
}

// LoadFile overlays the TOML file at path onto cfg. Only keys present in
// the file are applied; unknown keys are an error.
func LoadFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("transport") {
		cfg.Transport = strings.TrimSpace(raw.Transport)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("max_file_size_mb") {
		cfg.MaxFileSizeMB = raw.MaxFileSizeMB
	}
	if meta.IsDefined("timeout") {
		cfg.OperationTimeoutSec = raw.Timeout
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("lock_dir") {
		cfg.LockDir = strings.TrimSpace(raw.LockDir)
	}
	if meta.IsDefined("allowed_roots") {
		cfg.AllowedRoots = raw.AllowedRoots
	}
	if meta.IsDefined("insert_flag_policy") {
		cfg.InsertFlagPolicy = strings.TrimSpace(raw.InsertFlagPolicy)
	}
	if meta.IsDefined("search_scope") {
		cfg.SearchScope = strings.TrimSpace(raw.SearchScope)
	}

	if meta.IsDefined("mail", "host") {
		cfg.Mail.Host = strings.TrimSpace(raw.Mail.Host)
	}
	if meta.IsDefined("mail", "port") {
		cfg.Mail.Port = raw.Mail.Port
	}
	if meta.IsDefined("mail", "username") {
		cfg.Mail.Username = raw.Mail.Username
	}
	if meta.IsDefined("mail", "password") {
		cfg.Mail.Password = raw.Mail.Password
	}
	if meta.IsDefined("mail", "from") {
		cfg.Mail.From = strings.TrimSpace(raw.Mail.From)
	}
	if meta.IsDefined("mail", "ssl") {
		cfg.Mail.SSL = raw.Mail.SSL
	}
	if meta.IsDefined("mail", "timeout_sec") {
		cfg.Mail.TimeoutSec = raw.Mail.TimeoutSec
	}
	return nil
}

// ApplyEnv loads envFile (when it exists) into the process environment
// without overriding variables already set, then overlays OFFICE_TOOLS_*
// variables onto cfg. An empty envFile means ".env".
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !stdErrors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("TRANSPORT", &cfg.Transport)
	num("PORT", &cfg.Port)
	num("MAX_FILE_SIZE_MB", &cfg.MaxFileSizeMB)
	num("TIMEOUT", &cfg.OperationTimeoutSec)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOCK_DIR", &cfg.LockDir)
	if v, ok := os.LookupEnv(EnvPrefix + "ALLOWED_ROOTS"); ok {
		cfg.AllowedRoots = splitList(v)
	}
	str("INSERT_FLAG_POLICY", &cfg.InsertFlagPolicy)
	str("SEARCH_SCOPE", &cfg.SearchScope)

	str("SMTP_HOST", &cfg.Mail.Host)
	num("SMTP_PORT", &cfg.Mail.Port)
	str("SMTP_USERNAME", &cfg.Mail.Username)
	if v, ok := os.LookupEnv(EnvPrefix + "SMTP_PASSWORD"); ok {
		cfg.Mail.Password = v
	}
	str("SMTP_FROM", &cfg.Mail.From)
	boolean("SMTP_SSL", &cfg.Mail.SSL)
	num("SMTP_TIMEOUT", &cfg.Mail.TimeoutSec)

	return stdErrors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Flags are the command-line overrides. Only flags the user set are
// applied, so defaults never clobber file or environment values.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string
	EnvFile    string

	transport        string
	port             int
	maxFileSizeMB    int
	timeout          int
	logLevel         string
	lockDir          string
	allowedRoots     []string
	insertFlagPolicy string
	searchScope      string
}

// RegisterFlags defines the server flags on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	d := Default()
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "Path to a TOML config file")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to a .env file with OFFICE_TOOLS_* variables")
	fs.StringVar(&f.transport, "transport", d.Transport, "Transport protocol (stdio or http)")
	fs.IntVar(&f.port, "port", d.Port, "Port for HTTP transport")
	fs.IntVar(&f.maxFileSizeMB, "max-file-size", d.MaxFileSizeMB, "Maximum document size in MB")
	fs.IntVar(&f.timeout, "timeout", d.OperationTimeoutSec, "Operation timeout in seconds")
	fs.StringVar(&f.logLevel, "log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&f.lockDir, "lock-dir", d.LockDir, "Directory for per-document lock files")
	fs.StringSliceVar(&f.allowedRoots, "allowed-root", nil, "Directory documents must live under (repeatable)")
	fs.StringVar(&f.insertFlagPolicy, "insert-flag-policy", d.InsertFlagPolicy, "Handling of an out-of-range insert_flag (reject or append)")
	fs.StringVar(&f.searchScope, "search-scope", d.SearchScope, "Target search scope (forward or line)")
	return f
}

// Apply copies every flag the user set onto cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("transport") {
		cfg.Transport = f.transport
	}
	if f.fs.Changed("port") {
		cfg.Port = f.port
	}
	if f.fs.Changed("max-file-size") {
		cfg.MaxFileSizeMB = f.maxFileSizeMB
	}
	if f.fs.Changed("timeout") {
		cfg.OperationTimeoutSec = f.timeout
	}
	if f.fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if f.fs.Changed("lock-dir") {
		cfg.LockDir = f.lockDir
	}
	if f.fs.Changed("allowed-root") {
		cfg.AllowedRoots = f.allowedRoots
	}
	if f.fs.Changed("insert-flag-policy") {
		cfg.InsertFlagPolicy = f.insertFlagPolicy
	}
	if f.fs.Changed("search-scope") {
		cfg.SearchScope = f.searchScope
	}
}

// Load builds the effective configuration: defaults, then the config
// file, then the environment, then explicit flags. The result is validated.
func Load(f *Flags) (*Config, error) {
	cfg := Default()
	if f.ConfigPath != "" {
		if err := LoadFile(cfg, f.ConfigPath); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg, f.EnvFile); err != nil {
		return nil, err
	}
	f.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.Transport != "http" && c.Transport != "stdio" {
		return fmt.Errorf("transport must be 'http' or 'stdio'")
	}

	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1024 and 65535")
	}

	if c.MaxFileSizeMB < 1 || c.MaxFileSizeMB > 100 {
		return fmt.Errorf("max file size must be between 1 and 100 MB")
	}

	if c.OperationTimeoutSec < 1 || c.OperationTimeoutSec > 300 {
		return fmt.Errorf("operation timeout must be between 1 and 300 seconds")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error")
	}

	if c.LockDir == "" {
		return fmt.Errorf("lock directory is required")
	}

	for _, root := range c.AllowedRoots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("allowed root must be an absolute path: %s", root)
		}
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("allowed root is not accessible: %s: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("allowed root is not a directory: %s", root)
		}
	}

	if c.InsertFlagPolicy != InsertFlagReject && c.InsertFlagPolicy != InsertFlagAppend {
		return fmt.Errorf("insert flag policy must be '%s' or '%s'", InsertFlagReject, InsertFlagAppend)
	}

	if c.SearchScope != "forward" && c.SearchScope != "line" {
		return fmt.Errorf("search scope must be 'forward' or 'line'")
	}

	if c.Mail.Host != "" {
		if c.Mail.Port < 1 || c.Mail.Port > 65535 {
			return fmt.Errorf("mail port must be between 1 and 65535")
		}
		if c.Mail.TimeoutSec < 1 {
			return fmt.Errorf("mail timeout must be at least 1 second")
		}
	}

	return nil
}
