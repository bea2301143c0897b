package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"AINewsDigest/internal/policy"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "AI_DIGEST_CONFIG"
	envFileEnv      = "ENV_FILE"

	logLevelEnv         = "LOG_LEVEL"
	databaseDriverEnv   = "DATABASE_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	redditClientIDEnv   = "REDDIT_CLIENT_ID"
	redditSecretEnv     = "REDDIT_CLIENT_SECRET"
	redditUserAgentEnv  = "REDDIT_USER_AGENT"
	emailProviderEnv    = "EMAIL_PROVIDER"
	resendAPIKeyEnv     = "RESEND_API_KEY"
	emailUserEnv        = "EMAIL_USER"
	emailPasswordEnv    = "EMAIL_PASSWORD"
	smtpServerEnv       = "SMTP_SERVER"
	smtpPortEnv         = "SMTP_PORT"
	senderNameEnv       = "EMAIL_SENDER_NAME"
	activeListEnv       = "ACTIVE_EMAIL_LIST"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	defaultUserAgent    = "AINewsDigest/1.0"
	SelectorAll         = "all"
	ProviderGoogle      = "google"
	ProviderResend      = "resend"
	PaperStrategyAPI    = "api"
	PaperStrategyList   = "listing"
	DriverSQLite        = "sqlite3"
	DriverPostgres      = "postgres"
	defaultDeliverySize = 50
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	HTTP          HTTPConfig         `yaml:"http"`
	Sources       SourcesConfig      `yaml:"sources"`
	Policy        PolicyConfig       `yaml:"policy"`
	Recipients    RecipientsConfig   `yaml:"recipients"`
	Delivery      DeliveryConfig     `yaml:"delivery"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the recipient/run-history store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the digest should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// HTTPConfig configures the trigger API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SourcesConfig groups per-source fetch settings.
type SourcesConfig struct {
	RequestTimeout time.Duration    `yaml:"requestTimeout"`
	UserAgent      string           `yaml:"userAgent"`
	Discussion     DiscussionConfig `yaml:"discussion"`
	Papers         PapersConfig     `yaml:"papers"`
	News           NewsConfig       `yaml:"news"`
}

// DiscussionConfig describes the discussion-platform communities.
type DiscussionConfig struct {
	MaxItems          int            `yaml:"maxItems"`
	Window            time.Duration  `yaml:"window"`
	HotLimit          int            `yaml:"hotLimit"`
	CommentsTrending  int            `yaml:"commentsTrending"`
	RequestsPerSecond float64        `yaml:"requestsPerSecond"`
	ClientID          string         `yaml:"clientId"`
	ClientSecret      string         `yaml:"clientSecret"`
	UserAgent         string         `yaml:"userAgent"`
	BaseURL           string         `yaml:"baseUrl"`
	OAuthURL          string         `yaml:"oauthUrl"`
	TokenURL          string         `yaml:"tokenUrl"`
	Origins           []OriginConfig `yaml:"origins"`
}

// HasCredentials reports whether the authenticated access path can be used.
func (d DiscussionConfig) HasCredentials() bool {
	return strings.TrimSpace(d.ClientID) != "" && strings.TrimSpace(d.ClientSecret) != ""
}

// OriginConfig is one named community with its engagement threshold.
type OriginConfig struct {
	Name          string `yaml:"name"`
	MinEngagement int    `yaml:"minEngagement"`
}

// PapersConfig describes the preprint categories.
type PapersConfig struct {
	MaxItems          int           `yaml:"maxItems"`
	Window            time.Duration `yaml:"window"`
	MaxResults        int           `yaml:"maxResults"`
	Strategy          string        `yaml:"strategy"`
	Endpoint          string        `yaml:"endpoint"`
	ListingURL        string        `yaml:"listingUrl"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Categories        []string      `yaml:"categories"`
}

// NewsConfig describes the syndication feeds.
type NewsConfig struct {
	MaxItems int           `yaml:"maxItems"`
	Window   time.Duration `yaml:"window"`
	Feeds    []FeedConfig  `yaml:"feeds"`
}

// FeedConfig is one named feed with a category label.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// PolicyConfig holds keyword tables and optional deduplication.
type PolicyConfig struct {
	SignificanceKeywords []string    `yaml:"significanceKeywords"`
	TagVocabulary        []string    `yaml:"tagVocabulary"`
	Dedup                DedupConfig `yaml:"dedup"`
}

// DedupConfig toggles cross-source title deduplication.
type DedupConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
}

// RecipientsConfig selects who receives the digest.
type RecipientsConfig struct {
	ActiveList        string              `yaml:"activeList"`
	IncludeRegistered bool                `yaml:"includeRegistered"`
	Frequency         string              `yaml:"frequency"`
	Groups            map[string][]string `yaml:"groups"`
}

// DeliveryConfig encapsulates the email channels.
type DeliveryConfig struct {
	Provider      string       `yaml:"provider"`
	BatchSize     int          `yaml:"batchSize"`
	Subject       string       `yaml:"subject"`
	SenderName    string       `yaml:"senderName"`
	SenderAddress string       `yaml:"senderAddress"`
	Resend        ResendConfig `yaml:"resend"`
	SMTP          SMTPConfig   `yaml:"smtp"`
}

// ResendConfig wires the Resend HTTP API.
type ResendConfig struct {
	APIKey   string `yaml:"apiKey"`
	Endpoint string `yaml:"endpoint"`
}

// SMTPConfig wires a STARTTLS SMTP relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Configured reports whether SMTP credentials are present.
func (s SMTPConfig) Configured() bool {
	return s.Username != "" && s.Password != "" && s.Host != ""
}

// NotificationConfig encapsulates outbound ops channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads .env files and YAML configuration (if present) over defaults and applies environment overrides.
func Load() (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = Parse(raw); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()
	return cfg, nil
}

// loadEnvFiles honours ENV_FILE, otherwise .env.local then .env; missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv(envFileEnv); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Sources.Discussion.ClientID, redditClientIDEnv)
	setString(&c.Sources.Discussion.ClientSecret, redditSecretEnv)
	setString(&c.Sources.Discussion.UserAgent, redditUserAgentEnv)
	setString(&c.Recipients.ActiveList, activeListEnv)
	setString(&c.Delivery.Resend.APIKey, resendAPIKeyEnv)
	setString(&c.Delivery.SMTP.Username, emailUserEnv)
	setString(&c.Delivery.SMTP.Password, emailPasswordEnv)
	setString(&c.Delivery.SMTP.Host, smtpServerEnv)
	setString(&c.Delivery.SenderName, senderNameEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)

	if v := strings.TrimSpace(os.Getenv(emailProviderEnv)); v != "" {
		c.Delivery.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(smtpPortEnv)); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Delivery.SMTP.Port = port
		}
	}
	if c.Delivery.SenderAddress == "" {
		c.Delivery.SenderAddress = c.Delivery.SMTP.Username
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	src := c.Sources
	if len(src.Discussion.Origins) == 0 && len(src.Papers.Categories) == 0 && len(src.News.Feeds) == 0 {
		add("no discussion origins, paper categories or news feeds configured")
	}
	for name, limit := range map[string]int{
		"discussion": src.Discussion.MaxItems,
		"papers":     src.Papers.MaxItems,
		"news":       src.News.MaxItems,
	} {
		if limit <= 0 {
			add("sources.%s.maxItems must be positive", name)
		}
	}
	for name, window := range map[string]time.Duration{
		"discussion": src.Discussion.Window,
		"papers":     src.Papers.Window,
		"news":       src.News.Window,
	} {
		if window <= 0 {
			add("sources.%s.window must be positive", name)
		}
	}
	for _, o := range src.Discussion.Origins {
		if strings.TrimSpace(o.Name) == "" {
			add("discussion origin with empty name")
		}
	}
	for _, f := range src.News.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			add("news feed %q has no url", f.Name)
		}
	}
	if s := src.Papers.Strategy; s != PaperStrategyAPI && s != PaperStrategyList {
		add("unknown papers strategy %q", s)
	}
	if p := c.Delivery.Provider; p != ProviderGoogle && p != ProviderResend {
		add("unknown email provider %q", p)
	}
	if c.Delivery.BatchSize <= 0 {
		add("delivery.batchSize must be positive")
	}
	if sel := c.Recipients.ActiveList; sel != SelectorAll {
		if _, ok := c.Recipients.Groups[sel]; !ok {
			add("unknown recipient list %q", sel)
		}
	}
	if d := c.Database.Driver; d != "" && d != DriverSQLite && d != DriverPostgres {
		add("unsupported database driver %q", d)
	}
	if t := c.Policy.Dedup.Threshold; c.Policy.Dedup.Enabled && (t <= 0 || t > 1) {
		add("policy.dedup.threshold must be in (0, 1]")
	}

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// UserAgentFor returns the discussion user agent or the shared default.
func (c Config) UserAgentFor(specific string) string {
	if specific != "" {
		return specific
	}
	if c.Sources.UserAgent != "" {
		return c.Sources.UserAgent
	}
	return defaultUserAgent
}

// Default returns the built-in configuration.
func Default() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{Driver: DriverSQLite, DSN: "file:ainewsdigest.db?_foreign_keys=on"},
		Scheduler: SchedulerConfig{CronExpression: "0 18 * * *", Timezone: defaultTimezone, location: tz},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Sources: SourcesConfig{
			RequestTimeout: 20 * time.Second,
			UserAgent:      defaultUserAgent,
			Discussion: DiscussionConfig{
				MaxItems:          15,
				Window:            policy.Day,
				HotLimit:          25,
				CommentsTrending:  50,
				RequestsPerSecond: 2,
				BaseURL:           "https://www.reddit.com",
				OAuthURL:          "https://oauth.reddit.com",
				TokenURL:          "https://www.reddit.com/api/v1/access_token",
				Origins: []OriginConfig{
					{Name: "MachineLearning", MinEngagement: 100},
					{Name: "artificial", MinEngagement: 50},
					{Name: "OpenAI", MinEngagement: 100},
					{Name: "LocalLLaMA", MinEngagement: 100},
					{Name: "singularity", MinEngagement: 200},
					{Name: "deeplearning", MinEngagement: 30},
				},
			},
			Papers: PapersConfig{
				MaxItems:          10,
				Window:            policy.ThreeDays,
				MaxResults:        30,
				Strategy:          PaperStrategyAPI,
				Endpoint:          "http://export.arxiv.org/api/query",
				ListingURL:        "https://export.arxiv.org/list/%s/pastweek",
				RequestsPerSecond: 0.34,
				Categories:        []string{"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.RO", "cs.NE", "stat.ML"},
			},
			News: NewsConfig{
				MaxItems: 10,
				Window:   policy.Day,
				Feeds: []FeedConfig{
					{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Category: "industry"},
					{Name: "VentureBeat AI", URL: "https://venturebeat.com/category/ai/feed/", Category: "industry"},
					{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/topic/artificial-intelligence/feed", Category: "analysis"},
					{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/technology-lab", Category: "technology"},
					{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Category: "technology"},
					{Name: "Google AI Blog", URL: "https://blog.google/technology/ai/rss/", Category: "research"},
				},
			},
		},
		Policy: PolicyConfig{
			SignificanceKeywords: policy.DefaultSignificanceKeywords(),
			TagVocabulary:        policy.DefaultTagVocabulary(),
			Dedup:                DedupConfig{Enabled: false, Threshold: policy.DefaultSimilarityThreshold},
		},
		Recipients: RecipientsConfig{
			ActiveList:        "main",
			IncludeRegistered: true,
			Frequency:         "daily",
			Groups: map[string][]string{
				"main": {},
				"team": {},
				"vip":  {},
				"test": {"delivered@resend.dev"},
			},
		},
		Delivery: DeliveryConfig{
			Provider:   ProviderGoogle,
			BatchSize:  defaultDeliverySize,
			Subject:    "Daily AI Digest",
			SenderName: "AI Digest",
			Resend:     ResendConfig{Endpoint: "https://api.resend.com/emails"},
			SMTP:       SMTPConfig{Host: "smtp.gmail.com", Port: 587},
		},
	}
}
