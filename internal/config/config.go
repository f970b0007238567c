package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"ResearchDigest/internal/domain"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "RESEARCH_DIGEST_CONFIG"
	logLevelEnv         = "LOG_LEVEL"
	gatewayURLEnv       = "GATEWAY_URL"
	gatewayTargetEnv    = "GATEWAY_TARGET"
	trackingPathEnv     = "TRACKING_PATH"
	trackingDSNEnv      = "TRACKING_DSN"
	llmAPIKeyEnv        = "LLM_API_KEY"
	llmModelEnv         = "LLM_MODEL"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	defaultGatewayURL   = "http://localhost:5000"
	defaultStatePath    = "data/tracking_state.json"
	defaultUserAgent    = "Mozilla/5.0 (compatible; ResearchDigest/1.0)"
	defaultReviewPrompt = "You are an expert AI researcher reviewing new papers and projects for a multi-agent systems researcher."
)

// Backend and provider names accepted in configuration.
const (
	BackendFile      = "file"
	BackendPostgres  = "postgres"
	ProviderChat     = "chat"
	ProviderCommand  = "command"
	ProviderGateway  = "gateway"
	ProviderTelegram = "telegram"
	ProviderConsole  = "console"
)

// Config holds every setting of a digest run.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Keywords   []string         `yaml:"keywords"`
	Sources    []SourceConfig   `yaml:"sources"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Selection  SelectionConfig  `yaml:"selection"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Digest     DigestConfig     `yaml:"digest"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig describes a single source with its adapter.
type SourceConfig struct {
	Name      string            `yaml:"name"`
	Adapter   string            `yaml:"adapter"`
	Category  string            `yaml:"category"`
	Keywords  []string          `yaml:"keywords"`
	Endpoints []EndpointConfig  `yaml:"endpoints"`
	Options   map[string]string `yaml:"options"`
	Disabled  bool              `yaml:"disabled"`
}

// EndpointConfig is one URL to fetch for a source (e.g. an arXiv category query).
type EndpointConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FetchConfig bounds the HTTP fetcher.
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"userAgent"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	RespectRobots     bool          `yaml:"respectRobots"`
	MaxBodyBytes      int64         `yaml:"maxBodyBytes"`
}

// SelectionConfig controls ranking and truncation.
type SelectionConfig struct {
	Cap         int            `yaml:"cap"`
	PerCategory map[string]int `yaml:"perCategory"`
	Order       []string       `yaml:"order"`
}

// TrackingConfig selects where delivered identifiers are persisted.
type TrackingConfig struct {
	Backend               string `yaml:"backend"`
	Path                  string `yaml:"path"`
	DSN                   string `yaml:"dsn"`
	MarkOnDeliveryFailure *bool  `yaml:"markOnDeliveryFailure"`
}

// MarkOnFailure reports whether items are marked when delivery failed. Defaults to true.
func (t TrackingConfig) MarkOnFailure() bool {
	return t.MarkOnDeliveryFailure == nil || *t.MarkOnDeliveryFailure
}

// EnrichmentConfig describes the optional reviewer.
type EnrichmentConfig struct {
	Provider     string        `yaml:"provider"`
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Command      string        `yaml:"command"`
	Args         []string      `yaml:"args"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxItems     int           `yaml:"maxItems"`
}

// DeliveryConfig describes how the digest leaves the process.
type DeliveryConfig struct {
	Provider          string         `yaml:"provider"`
	GatewayURL        string         `yaml:"gatewayUrl"`
	GatewayConfigPath string         `yaml:"gatewayConfigPath"`
	Channel           string         `yaml:"channel"`
	Target            string         `yaml:"target"`
	Timeout           time.Duration  `yaml:"timeout"`
	Telegram          TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages directly to the Bot API.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// DigestConfig holds cosmetic settings of the rendered digest.
type DigestConfig struct {
	Title      string         `yaml:"title"`
	SignOff    string         `yaml:"signOff"`
	TitleWidth int            `yaml:"titleWidth"`
	Timezone   string         `yaml:"timezone"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the digest timezone string to a time.Location.
func (d DigestConfig) Location() *time.Location {
	if d.location != nil {
		return d.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfilePath"`
}

// Load reads the file named by RESEARCH_DIGEST_CONFIG (if any) and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom reads YAML configuration from path (if present) and applies environment overrides.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	names := map[string]struct{}{}
	for i, src := range c.Sources {
		label := src.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			errs = append(errs, fmt.Errorf("source %s: name is required", label))
		} else if _, dup := names[src.Name]; dup {
			errs = append(errs, fmt.Errorf("source %s: duplicate name", label))
		}
		names[src.Name] = struct{}{}

		if src.Adapter == "" {
			errs = append(errs, fmt.Errorf("source %s: adapter is required", label))
		}
		if _, err := domain.ParseCategory(src.Category); err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", label, err))
		}
		if len(src.Endpoints) == 0 {
			errs = append(errs, fmt.Errorf("source %s: at least one endpoint is required", label))
		}
		for _, ep := range src.Endpoints {
			if ep.URL == "" {
				errs = append(errs, fmt.Errorf("source %s: endpoint %q has no url", label, ep.Name))
			}
		}
	}

	if len(c.Keywords) == 0 {
		errs = append(errs, errors.New("keywords: at least one keyword is required"))
	}

	if c.Selection.Cap < 0 {
		errs = append(errs, errors.New("selection: cap must not be negative"))
	}
	for _, name := range c.Selection.Order {
		if _, err := domain.ParseCategory(name); err != nil {
			errs = append(errs, fmt.Errorf("selection order: %w", err))
		}
	}
	for name := range c.Selection.PerCategory {
		if _, err := domain.ParseCategory(name); err != nil {
			errs = append(errs, fmt.Errorf("selection perCategory: %w", err))
		}
	}

	switch c.Tracking.Backend {
	case BackendFile:
		if c.Tracking.Path == "" {
			errs = append(errs, errors.New("tracking: path is required for the file backend"))
		}
	case BackendPostgres:
		if c.Tracking.DSN == "" {
			errs = append(errs, errors.New("tracking: dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("tracking: unknown backend %q", c.Tracking.Backend))
	}

	switch c.Enrichment.Provider {
	case "":
	case ProviderChat:
		if c.Enrichment.Endpoint == "" || c.Enrichment.Model == "" {
			errs = append(errs, errors.New("enrichment: chat provider needs endpoint and model"))
		}
	case ProviderCommand:
		if c.Enrichment.Command == "" {
			errs = append(errs, errors.New("enrichment: command provider needs a command"))
		}
	default:
		errs = append(errs, fmt.Errorf("enrichment: unknown provider %q", c.Enrichment.Provider))
	}

	switch c.Delivery.Provider {
	case ProviderGateway, ProviderTelegram, ProviderConsole:
	default:
		errs = append(errs, fmt.Errorf("delivery: unknown provider %q", c.Delivery.Provider))
	}

	return errors.Join(errs...)
}

// SelectionOrder returns the configured category layout or the default one.
func (c Config) SelectionOrder() []domain.Category {
	if len(c.Selection.Order) == 0 {
		return domain.DefaultCategoryOrder
	}
	order := make([]domain.Category, 0, len(c.Selection.Order))
	for _, name := range c.Selection.Order {
		if category, err := domain.ParseCategory(name); err == nil {
			order = append(order, category)
		}
	}
	return order
}

// CategoryCaps converts per-category caps to typed keys.
func (c Config) CategoryCaps() map[domain.Category]int {
	caps := make(map[domain.Category]int, len(c.Selection.PerCategory))
	for name, n := range c.Selection.PerCategory {
		if category, err := domain.ParseCategory(name); err == nil {
			caps[category] = n
		}
	}
	return caps
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(gatewayURLEnv); v != "" {
		c.Delivery.GatewayURL = v
	}

	if v := os.Getenv(gatewayTargetEnv); v != "" {
		c.Delivery.Target = v
	}

	if v := os.Getenv(trackingPathEnv); v != "" {
		c.Tracking.Path = v
	}

	if v := os.Getenv(trackingDSNEnv); v != "" {
		c.Tracking.DSN = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.Enrichment.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.Enrichment.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Delivery.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Delivery.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Digest.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Digest.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Keywords) > 0 {
		base.Keywords = override.Keywords
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.RequestsPerSecond > 0 {
		base.Fetch.RequestsPerSecond = override.Fetch.RequestsPerSecond
	}
	if override.Fetch.RespectRobots {
		base.Fetch.RespectRobots = true
	}
	if override.Fetch.MaxBodyBytes > 0 {
		base.Fetch.MaxBodyBytes = override.Fetch.MaxBodyBytes
	}

	if override.Selection.Cap > 0 {
		base.Selection.Cap = override.Selection.Cap
	}
	if override.Selection.PerCategory != nil {
		base.Selection.PerCategory = override.Selection.PerCategory
	}
	if len(override.Selection.Order) > 0 {
		base.Selection.Order = override.Selection.Order
	}

	if override.Tracking.Backend != "" {
		base.Tracking.Backend = strings.ToLower(override.Tracking.Backend)
	}
	if override.Tracking.Path != "" {
		base.Tracking.Path = override.Tracking.Path
	}
	if override.Tracking.DSN != "" {
		base.Tracking.DSN = override.Tracking.DSN
	}
	if override.Tracking.MarkOnDeliveryFailure != nil {
		base.Tracking.MarkOnDeliveryFailure = override.Tracking.MarkOnDeliveryFailure
	}

	if override.Enrichment.Provider != "" {
		base.Enrichment.Provider = strings.ToLower(override.Enrichment.Provider)
	}
	if override.Enrichment.Endpoint != "" {
		base.Enrichment.Endpoint = override.Enrichment.Endpoint
	}
	if override.Enrichment.Model != "" {
		base.Enrichment.Model = override.Enrichment.Model
	}
	if override.Enrichment.APIKey != "" {
		base.Enrichment.APIKey = override.Enrichment.APIKey
	}
	if override.Enrichment.SystemPrompt != "" {
		base.Enrichment.SystemPrompt = override.Enrichment.SystemPrompt
	}
	if override.Enrichment.Command != "" {
		base.Enrichment.Command = override.Enrichment.Command
		base.Enrichment.Args = override.Enrichment.Args
	}
	if override.Enrichment.Timeout > 0 {
		base.Enrichment.Timeout = override.Enrichment.Timeout
	}
	if override.Enrichment.MaxItems > 0 {
		base.Enrichment.MaxItems = override.Enrichment.MaxItems
	}

	if override.Delivery.Provider != "" {
		base.Delivery.Provider = strings.ToLower(override.Delivery.Provider)
	}
	if override.Delivery.GatewayURL != "" {
		base.Delivery.GatewayURL = override.Delivery.GatewayURL
	}
	if override.Delivery.GatewayConfigPath != "" {
		base.Delivery.GatewayConfigPath = override.Delivery.GatewayConfigPath
	}
	if override.Delivery.Channel != "" {
		base.Delivery.Channel = override.Delivery.Channel
	}
	if override.Delivery.Target != "" {
		base.Delivery.Target = override.Delivery.Target
	}
	if override.Delivery.Timeout > 0 {
		base.Delivery.Timeout = override.Delivery.Timeout
	}
	if override.Delivery.Telegram.BotToken != "" {
		base.Delivery.Telegram.BotToken = override.Delivery.Telegram.BotToken
	}
	if override.Delivery.Telegram.ChatID != "" {
		base.Delivery.Telegram.ChatID = override.Delivery.Telegram.ChatID
	}

	if override.Digest.Title != "" {
		base.Digest.Title = override.Digest.Title
	}
	if override.Digest.SignOff != "" {
		base.Digest.SignOff = override.Digest.SignOff
	}
	if override.Digest.TitleWidth > 0 {
		base.Digest.TitleWidth = override.Digest.TitleWidth
	}
	if override.Digest.Timezone != "" {
		base.Digest.Timezone = override.Digest.Timezone
	}

	if override.Metrics.TextfilePath != "" {
		base.Metrics.TextfilePath = override.Metrics.TextfilePath
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	conferenceKeywords := []string{"accepted", "deadline"}
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Keywords: []string{
			"multi-agent", "multi agent", "agent", "collaboration", "cooperation",
			"task planning", "task allocation", "coordination", "llm", "reasoning",
			"autonomous", "swarm", "collective", "distributed", "emergent",
			"reinforcement learning", "foundation model", "generative ai", "hierarchical",
		},
		Sources: []SourceConfig{
			{
				Name:      "Hacker News",
				Adapter:   "hackernews",
				Category:  string(domain.CategoryNews),
				Endpoints: []EndpointConfig{{URL: "https://news.ycombinator.com/"}},
			},
			{
				Name:     "GitHub Trending",
				Adapter:  "github-trending",
				Category: string(domain.CategoryGitHub),
				Endpoints: []EndpointConfig{
					{Name: "python", URL: "https://github.com/trending/python?since=daily&spoken_language_code=en"},
				},
			},
			{
				Name:      "NeurIPS 2025",
				Adapter:   "conference",
				Category:  string(domain.CategoryConference),
				Keywords:  conferenceKeywords,
				Endpoints: []EndpointConfig{{URL: "https://nips.cc/Conferences/2025"}},
			},
			{
				Name:      "ICLR 2025",
				Adapter:   "conference",
				Category:  string(domain.CategoryConference),
				Keywords:  conferenceKeywords,
				Endpoints: []EndpointConfig{{URL: "https://iclr.cc/Conferences/2025"}},
			},
			{
				Name:      "Lil'Log",
				Adapter:   "blog",
				Category:  string(domain.CategoryBlog),
				Endpoints: []EndpointConfig{{URL: "https://lilianweng.github.io/"}},
				Options:   map[string]string{"selector": "article a[href]"},
			},
			{
				Name:      "Sebastian Ruder",
				Adapter:   "blog",
				Category:  string(domain.CategoryBlog),
				Endpoints: []EndpointConfig{{URL: "https://ruder.io/"}},
			},
			{
				Name:     "arXiv",
				Adapter:  "arxiv-api",
				Category: string(domain.CategoryArxiv),
				Endpoints: []EndpointConfig{
					{Name: "cs.AI", URL: "https://export.arxiv.org/api/query?search_query=cat:cs.AI&start=0&max_results=30&sortBy=submittedDate&sortOrder=descending"},
					{Name: "cs.LG", URL: "https://export.arxiv.org/api/query?search_query=cat:cs.LG&start=0&max_results=30&sortBy=submittedDate&sortOrder=descending"},
					{Name: "cs.MA", URL: "https://export.arxiv.org/api/query?search_query=cat:cs.MA&start=0&max_results=30&sortBy=submittedDate&sortOrder=descending"},
				},
			},
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			UserAgent:         defaultUserAgent,
			Concurrency:       1,
			RequestsPerSecond: 1,
			MaxBodyBytes:      8 << 20,
		},
		Selection: SelectionConfig{
			Cap: 5,
			PerCategory: map[string]int{
				string(domain.CategoryConference): 3,
				string(domain.CategoryBlog):       3,
			},
		},
		Tracking: TrackingConfig{Backend: BackendFile, Path: defaultStatePath},
		Enrichment: EnrichmentConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: defaultReviewPrompt,
			Timeout:      120 * time.Second,
			MaxItems:     20,
		},
		Delivery: DeliveryConfig{
			Provider: ProviderGateway,
			Channel:  "telegram",
			Timeout:  10 * time.Second,
		},
		Digest: DigestConfig{Timezone: defaultTimezone, location: tz},
	}
}

// DefaultGatewayURL is used when neither the config nor the gateway config file names one.
func DefaultGatewayURL() string {
	return defaultGatewayURL
}
