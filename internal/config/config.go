package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Tab roles: the spreadsheet tabs the dashboard knows how to read.
const (
	RolePhilosophie = "philosophie"
	RoleEDS         = "eds"
	RoleGrandOral   = "go"
	RoleDNB         = "dnb"
	RoleEAF         = "eaf"
)

// Roles lists every tab role in display order.
var Roles = []string{RolePhilosophie, RoleEDS, RoleGrandOral, RoleDNB, RoleEAF}

// DefaultTabs maps roles to the sheet gids of the results spreadsheet.
var DefaultTabs = map[string]string{
	RolePhilosophie: "776936543",
	RoleEDS:         "455744397",
	RoleGrandOral:   "1814626375",
	RoleDNB:         "1644783757",
	RoleEAF:         "1206285985",
}

const envPrefix = "RESULTATS"

// Global configuration structure.
type Global struct {
	// Data source
	Source        string            `mapstructure:"source" yaml:"source" validate:"oneof=sheets dir"`
	SpreadsheetID string            `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id" validate:"required_if=Source sheets"`
	DataDir       string            `mapstructure:"data_dir" yaml:"data_dir,omitempty" validate:"required_if=Source dir"`
	Tabs          map[string]string `mapstructure:"tabs" yaml:"tabs" validate:"required,dive,keys,oneof=philosophie eds go dnb eaf,endkeys,required"`

	// Sessions compared on every page
	CurrentYear int `mapstructure:"current_year" yaml:"current_year" validate:"gte=2000,lte=2100"`
	PriorYear   int `mapstructure:"prior_year" yaml:"prior_year" validate:"gte=2000,ltfield=CurrentYear"`

	// zero keeps the legacy 0% variation when the prior year has no data; na reports it missing.
	VariationPolicy string `mapstructure:"variation_policy" yaml:"variation_policy" validate:"oneof=zero na"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=1"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=1"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gtefield=RetryBaseDelayMs"`
	// Spreadsheet fetch pacing; 0 disables it.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	RequestBurst      int     `mapstructure:"request_burst" yaml:"request_burst" validate:"gte=1"`

	// serve
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required"`
}

// Tab returns the tab id configured for role, falling back to the default gid.
// A dir source names its files after the role unless the tab was overridden.
func (c *Global) Tab(role string) string {
	id := strings.TrimSpace(c.Tabs[role])
	if c.Source == "dir" && (id == "" || id == DefaultTabs[role]) {
		return role
	}
	if id != "" {
		return id
	}
	return DefaultTabs[role]
}

// Dataset returns the identifier handed to the data source.
func (c *Global) Dataset() string {
	if c.Source == "dir" {
		return c.DataDir
	}
	return c.SpreadsheetID
}

var validate = validator.New()

// Validate checks the configuration before a source is built from it.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s: %w", strings.Join(msgs, "; "), err)
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dir returns ~/.resultats.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".resultats"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.resultats/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read into the environment first;
// variables already set win over it.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source", "sheets")
	v.SetDefault("spreadsheet_id", "")
	v.SetDefault("data_dir", "")
	for role, gid := range DefaultTabs {
		v.SetDefault("tabs."+role, gid)
	}
	v.SetDefault("current_year", 2024)
	v.SetDefault("prior_year", 2023)
	v.SetDefault("variation_policy", "zero")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("requests_per_second", 5)
	v.SetDefault("request_burst", 5)
	v.SetDefault("listen_addr", ":8080")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Tabs == nil {
		c.Tabs = map[string]string{}
	}
	for role, gid := range DefaultTabs {
		if strings.TrimSpace(c.Tabs[role]) == "" {
			c.Tabs[role] = gid
		}
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	c.VariationPolicy = strings.ToLower(strings.TrimSpace(c.VariationPolicy))
	return &c, nil
}

// Set assigns one key from its string form, as used by `config set`.
func (c *Global) Set(key, val string) error {
	if role, ok := strings.CutPrefix(key, "tabs."); ok {
		if _, known := DefaultTabs[role]; !known {
			return fmt.Errorf("unknown tab role: %s (use %s)", role, strings.Join(Roles, ", "))
		}
		if c.Tabs == nil {
			c.Tabs = map[string]string{}
		}
		c.Tabs[role] = val
		return nil
	}
	switch key {
	case "source":
		switch v := strings.ToLower(val); v {
		case "sheets", "dir":
			c.Source = v
		default:
			return fmt.Errorf("invalid source: %s (use sheets or dir)", val)
		}
	case "spreadsheet_id":
		c.SpreadsheetID = val
	case "data_dir":
		c.DataDir = val
	case "variation_policy":
		switch v := strings.ToLower(val); v {
		case "zero", "na":
			c.VariationPolicy = v
		default:
			return fmt.Errorf("invalid variation_policy: %s (use zero or na)", val)
		}
	case "listen_addr":
		c.ListenAddr = val
	case "current_year":
		return setInt(&c.CurrentYear, key, val)
	case "prior_year":
		return setInt(&c.PriorYear, key, val)
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec, key, val)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, key, val)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs, key, val)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs, key, val)
	case "requests_per_second":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		c.RequestsPerSecond = f
	case "request_burst":
		return setInt(&c.RequestBurst, key, val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string) error {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || i < 0 {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

// SortedTabs returns role/tab pairs in role order, unknown roles last.
func (c *Global) SortedTabs() [][2]string {
	known := map[string]bool{}
	var out [][2]string
	for _, r := range Roles {
		known[r] = true
		out = append(out, [2]string{r, c.Tab(r)})
	}
	var extra []string
	for r := range c.Tabs {
		if !known[r] {
			extra = append(extra, r)
		}
	}
	sort.Strings(extra)
	for _, r := range extra {
		out = append(out, [2]string{r, c.Tabs[r]})
	}
	return out
}
