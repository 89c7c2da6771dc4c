package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"AckeeVeille/internal/domain"
)

const (
	defaultTimezone  = "Europe/Paris"
	configPathEnv    = "ACKEE_VEILLE_CONFIG"
	anthropicKeyEnv  = "ANTHROPIC_API_KEY"
	serperKeyEnv     = "SERPER_API_KEY"
	crunchbaseKeyEnv = "CRUNCHBASE_API_KEY"
	llmModelEnv      = "ACKEE_LLM_MODEL"
	reportsDirEnv    = "ACKEE_REPORTS_DIR"
	logLevelEnv      = "LOG_LEVEL"
	ledgerDSNEnv     = "ACKEE_LEDGER_DSN"
)

var dotEnvFiles = []string{".env", ".env.local"}

// Config holds every setting read once at startup.
type Config struct {
	Sources     SourcesConfig     `yaml:"sources"`
	Competitors CompetitorsConfig `yaml:"competitors"`
	Recipients  []string          `yaml:"recipients"`
	Output      OutputConfig      `yaml:"output"`
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Funding     FundingConfig     `yaml:"funding"`
	HTTP        HTTPConfig        `yaml:"http"`
	Email       EmailConfig       `yaml:"email"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SourcesConfig groups the feed-based media sources.
type SourcesConfig struct {
	Media []MediaSource `yaml:"media"`
}

// MediaSource is one feed with its optional keyword filter.
type MediaSource struct {
	Name     string   `yaml:"name"`
	RSS      string   `yaml:"rss"`
	Keywords []string `yaml:"keywords"`
}

// CompetitorsConfig lists the tracked competitors.
type CompetitorsConfig struct {
	Direct []Competitor `yaml:"direct"`
}

// Competitor accepts either a bare name or a mapping with a name key.
type Competitor struct {
	Name string `yaml:"name"`
}

// UnmarshalYAML supports `- Wave` as well as `- name: Wave`.
func (c *Competitor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Name = strings.TrimSpace(node.Value)
		return nil
	}
	type plain Competitor
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Competitor(p)
	c.Name = strings.TrimSpace(c.Name)
	return nil
}

// OutputConfig says where corpora and reports are written.
type OutputConfig struct {
	ReportsDir string `yaml:"reports_dir"`
}

// LLMConfig defines how to contact the generative-text API.
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SearchConfig configures the web search adapter.
type SearchConfig struct {
	Endpoint        string   `yaml:"endpoint"`
	APIKey          string   `yaml:"api_key"`
	Country         string   `yaml:"country"`
	Language        string   `yaml:"language"`
	ResultsPerQuery int      `yaml:"results_per_query"`
	MaxCompetitors  int      `yaml:"max_competitors"`
	ThematicQueries []string `yaml:"thematic_queries"`
}

// FundingConfig configures the funding and acquisition adapter.
type FundingConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	APIKey     string   `yaml:"api_key"`
	Categories []string `yaml:"categories"`
	Limit      int      `yaml:"limit"`
}

// HTTPConfig bounds every outgoing collection call.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// EmailConfig holds notification message headers.
type EmailConfig struct {
	From string `yaml:"from"`
}

// SchedulerConfig defines when the weekly run fires.
type SchedulerConfig struct {
	Weekday  string         `yaml:"weekday"`
	Time     string         `yaml:"time"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParsedWeekday maps the configured weekday name to time.Weekday.
func (s SchedulerConfig) ParsedWeekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s.Weekday))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown weekday %q", s.Weekday)
}

// ParsedClock splits the configured "HH:MM" time.
func (s SchedulerConfig) ParsedClock() (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s.Time), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s.Time)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s.Time)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s.Time)
	}
	return hour, minute, nil
}

// LedgerConfig selects the run ledger backend: sqlite, postgres or none.
type LedgerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// MetricsConfig points at a node-exporter textfile; empty disables export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LoggingConfig selects level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env files, the YAML file (explicit path, else $ACKEE_VEILLE_CONFIG) and
// environment overrides. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	loadDotEnv()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrConfiguration, path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings no run can start with.
func (c Config) Validate() error {
	var problems []error

	if strings.TrimSpace(c.LLM.APIKey) == "" {
		problems = append(problems, fmt.Errorf("%s is required", anthropicKeyEnv))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		problems = append(problems, errors.New("llm.model is required"))
	}
	if c.LLM.MaxTokens <= 0 {
		problems = append(problems, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		problems = append(problems, fmt.Errorf("llm.temperature must be within [0,1], got %.2f", c.LLM.Temperature))
	}
	if strings.TrimSpace(c.Output.ReportsDir) == "" {
		problems = append(problems, errors.New("output.reports_dir is required"))
	}
	for i, src := range c.Sources.Media {
		if strings.TrimSpace(src.Name) == "" {
			problems = append(problems, fmt.Errorf("sources.media[%d].name is required", i))
		}
	}
	switch c.Ledger.Driver {
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Ledger.DSN) == "" {
			problems = append(problems, fmt.Errorf("ledger.dsn is required for driver %s", c.Ledger.Driver))
		}
	case "", "none":
	default:
		problems = append(problems, fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver))
	}
	if _, err := c.Scheduler.ParsedWeekday(); err != nil {
		problems = append(problems, fmt.Errorf("scheduler: %w", err))
	}
	if _, _, err := c.Scheduler.ParsedClock(); err != nil {
		problems = append(problems, fmt.Errorf("scheduler: %w", err))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(problems...))
}

// CompetitorNames returns the configured direct competitor names.
func (c Config) CompetitorNames() []string {
	names := make([]string, 0, len(c.Competitors.Direct))
	for _, comp := range c.Competitors.Direct {
		if comp.Name != "" {
			names = append(names, comp.Name)
		}
	}
	return names
}

func loadDotEnv() {
	for _, file := range dotEnvFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		// Load never overrides variables already present in the process environment.
		_ = godotenv.Load(file)
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(anthropicKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(serperKeyEnv); v != "" {
		c.Search.APIKey = v
	}

	if v := os.Getenv(crunchbaseKeyEnv); v != "" {
		c.Funding.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(reportsDirEnv); v != "" {
		c.Output.ReportsDir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(ledgerDSNEnv); v != "" {
		c.Ledger.DSN = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %s: %v", domain.ErrConfiguration, tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

func defaultConfig() Config {
	return Config{
		Sources: SourcesConfig{
			Media: []MediaSource{
				{
					Name:     "TechCabal",
					RSS:      "https://techcabal.com/feed/",
					Keywords: []string{"fintech", "remittance", "mobile money", "payment", "transfert"},
				},
				{
					Name:     "Finextra",
					RSS:      "https://www.finextra.com/rss/headlines.aspx",
					Keywords: []string{"remittance", "cross-border", "africa", "stablecoin"},
				},
			},
		},
		Competitors: CompetitorsConfig{
			Direct: []Competitor{
				{Name: "Wave"}, {Name: "Wise"}, {Name: "Remitly"}, {Name: "WorldRemit"}, {Name: "Revolut"},
			},
		},
		Output: OutputConfig{ReportsDir: "reports"},
		LLM: LLMConfig{
			Endpoint:    "https://api.anthropic.com",
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   8000,
			Temperature: 0.3,
			Timeout:     5 * time.Minute,
		},
		Search: SearchConfig{
			Endpoint:        "https://google.serper.dev/search",
			Country:         "fr",
			Language:        "fr",
			ResultsPerQuery: 10,
			MaxCompetitors:  5,
			ThematicQueries: []string{
				"fintech remittance africa funding",
				"mobile money UEMOA regulation",
				"stablecoin payments africa",
				"BaaS provider europe fintech",
				"BCEAO fintech license",
			},
		},
		Funding: FundingConfig{
			Endpoint:   "https://api.crunchbase.com/api/v4",
			Categories: []string{"fintech", "payments", "blockchain", "financial services"},
			Limit:      50,
		},
		HTTP:      HTTPConfig{Timeout: 15 * time.Second},
		Email:     EmailConfig{From: "veille@ackee.com"},
		Scheduler: SchedulerConfig{Weekday: "monday", Time: "08:00", Timezone: defaultTimezone},
		Ledger:    LedgerConfig{Driver: "sqlite", DSN: "reports/veille_runs.db"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
