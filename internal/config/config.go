package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gyeh/aihstats/internal/model"

	"gopkg.in/yaml.v3"
)

// Defaults for the dashboard settings.
const (
	DefaultQuery        = "SELECT * FROM public.sus_ride_df_aih"
	DefaultCacheTTL     = 600 * time.Second
	DefaultTopN         = 15
	DefaultMinRadius    = 3
	DefaultMaxRadius    = 25
	DefaultPreviewLimit = 100
	DefaultListen       = ":8080"
)

// Config holds all runtime configuration for an aihstats run.
type Config struct {
	DSN         string
	LogFormat   string // "text" or "json"
	LogLevel    string
	ConfigFile  string
	SecretsFile string // local TOML secrets
	SecretName  string // AWS Secrets Manager secret id
	AWSRegion   string

	// load
	FilePath string
	Force    bool
	Replace  bool

	// dashboard
	Query           string
	CacheTTL        time.Duration
	TopN            int
	ReferenceFile   string
	MinRadius       float64
	MaxRadius       float64
	PreviewLimit    int
	ProcedureGroups []string // keys of model.ProcedureGroups to show
	SurgeryGroups   []string // keys of model.SurgeryGroups to show
	Listen          string
}

// yamlConfig is the on-disk YAML structure. Zero values leave the current
// setting untouched.
type yamlConfig struct {
	Query           string        `yaml:"query"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	TopN            int           `yaml:"top_n"`
	ReferenceFile   string        `yaml:"reference_file"`
	MinRadius       float64       `yaml:"min_radius"`
	MaxRadius       float64       `yaml:"max_radius"`
	PreviewLimit    int           `yaml:"preview_limit"`
	ProcedureGroups []string      `yaml:"procedure_groups"`
	SurgeryGroups   []string      `yaml:"surgery_groups"`
	Listen          string        `yaml:"listen"`
}

// ApplyDefaults fills every unset dashboard setting.
func (c *Config) ApplyDefaults() {
	if c.Query == "" {
		c.Query = DefaultQuery
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.TopN == 0 {
		c.TopN = DefaultTopN
	}
	if c.MinRadius == 0 {
		c.MinRadius = DefaultMinRadius
	}
	if c.MaxRadius == 0 {
		c.MaxRadius = DefaultMaxRadius
	}
	if c.PreviewLimit == 0 {
		c.PreviewLimit = DefaultPreviewLimit
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if len(c.ProcedureGroups) == 0 {
		c.ProcedureGroups = keys(model.ProcedureGroups)
	}
	if len(c.SurgeryGroups) == 0 {
		c.SurgeryGroups = keys(model.SurgeryGroups)
	}
}

// LoadFromFile reads a YAML config file and merges its values into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if yc.Query != "" {
		c.Query = yc.Query
	}
	if yc.CacheTTL != 0 {
		c.CacheTTL = yc.CacheTTL
	}
	if yc.TopN != 0 {
		c.TopN = yc.TopN
	}
	if yc.ReferenceFile != "" && c.ReferenceFile == "" {
		c.ReferenceFile = yc.ReferenceFile
	}
	if yc.MinRadius != 0 {
		c.MinRadius = yc.MinRadius
	}
	if yc.MaxRadius != 0 {
		c.MaxRadius = yc.MaxRadius
	}
	if yc.PreviewLimit != 0 {
		c.PreviewLimit = yc.PreviewLimit
	}
	if yc.Listen != "" && c.Listen == "" {
		c.Listen = yc.Listen
	}
	c.ProcedureGroups = yc.ProcedureGroups
	c.SurgeryGroups = yc.SurgeryGroups
	return c.validateGroups()
}

// validateGroups checks that every configured group key names a known
// category of its table. Empty lists default to the whole table.
func (c *Config) validateGroups() error {
	if len(c.ProcedureGroups) == 0 {
		c.ProcedureGroups = keys(model.ProcedureGroups)
	}
	if len(c.SurgeryGroups) == 0 {
		c.SurgeryGroups = keys(model.SurgeryGroups)
	}
	if _, err := resolve(model.ProcedureGroups, c.ProcedureGroups); err != nil {
		return fmt.Errorf("procedure_groups: %w", err)
	}
	if _, err := resolve(model.SurgeryGroups, c.SurgeryGroups); err != nil {
		return fmt.Errorf("surgery_groups: %w", err)
	}
	return nil
}

// Validate checks the dashboard settings.
func (c *Config) Validate() error {
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if c.TopN < 0 {
		return fmt.Errorf("top_n must not be negative")
	}
	if c.MinRadius < 0 || c.MinRadius > c.MaxRadius {
		return fmt.Errorf("radius range %g..%g is invalid", c.MinRadius, c.MaxRadius)
	}
	if c.ReferenceFile != "" {
		if _, err := os.Stat(c.ReferenceFile); err != nil {
			return fmt.Errorf("reference file not accessible: %w", err)
		}
	}
	return c.validateGroups()
}

// ValidateLoad checks the fields a load or plan run needs.
func (c *Config) ValidateLoad() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	return nil
}

// ProcedureCategories returns the enabled procedure groups in canonical order.
func (c *Config) ProcedureCategories() []model.Category {
	cats, _ := resolve(model.ProcedureGroups, c.ProcedureGroups)
	return cats
}

// SurgeryCategories returns the enabled surgery groups in canonical order.
func (c *Config) SurgeryCategories() []model.Category {
	cats, _ := resolve(model.SurgeryGroups, c.SurgeryGroups)
	return cats
}

func resolve(table []model.Category, names []string) ([]model.Category, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		found := false
		for _, c := range table {
			if c.Key == n {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown group %q", n)
		}
		want[n] = true
	}
	var out []model.Category
	for _, c := range table {
		if want[c.Key] {
			out = append(out, c)
		}
	}
	return out, nil
}

func keys(table []model.Category) []string {
	out := make([]string, len(table))
	for i, c := range table {
		out[i] = c.Key
	}
	return out
}
