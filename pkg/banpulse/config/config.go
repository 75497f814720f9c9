package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samroof/banpulse/pkg/banpulse/internalerr"
)

// Config holds the full pipeline configuration.
type Config struct {
	Reddit  RedditConfig  `yaml:"reddit"`
	Collect CollectConfig `yaml:"collect"`
	Filters FilterConfig  `yaml:"filters"`
	Topics  TopicsConfig  `yaml:"topics"`
	Report  ReportConfig  `yaml:"report"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// RedditConfig holds API access settings. Credentials come from the
// environment, never from the file.
type RedditConfig struct {
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	UserAgent    string `yaml:"user_agent"`
	BaseURL      string `yaml:"base_url"`  // override for tests
	TokenURL     string `yaml:"token_url"` // override for tests
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// CollectConfig holds the subreddit/search-term cross product and rate limits.
type CollectConfig struct {
	Subreddits  []string `yaml:"subreddits"`
	SearchTerms []string `yaml:"search_terms"`
	SearchLimit int      `yaml:"search_limit"`
	TopComments int      `yaml:"top_comments"`
	PostDelayMS int      `yaml:"post_delay_ms"`
	TermDelayMS int      `yaml:"term_delay_ms"`
}

// FilterConfig holds stage-filter thresholds and token lists.
type FilterConfig struct {
	MinLength     int      `yaml:"min_length"`
	MinScore      int      `yaml:"min_score"`
	DateCutoff    string   `yaml:"date_cutoff"` // YYYY-MM-DD
	Placeholders  []string `yaml:"placeholders"`
	ProfanityList []string `yaml:"profanity_list"`
	BanKeywords   []string `yaml:"ban_keywords"`
}

// TopicsConfig holds topic-model parameters.
type TopicsConfig struct {
	NumTopics   int      `yaml:"num_topics"`
	Seed        int64    `yaml:"seed"`
	Passes      int      `yaml:"passes"`
	MinTokenLen int      `yaml:"min_token_len"`
	MinDocFreq  int      `yaml:"min_doc_freq"`
	MaxDocRatio float64  `yaml:"max_doc_ratio"`
	TopWords    int      `yaml:"top_words"`
	ExtraStops  []string `yaml:"extra_stopwords"`
}

// ReportConfig holds report and sampling parameters.
type ReportConfig struct {
	SampleSeed       int64   `yaml:"sample_seed"`
	SamplesPerLabel  int     `yaml:"samples_per_label"`
	QuotesPerTopic   int     `yaml:"quotes_per_topic"`
	QuoteMinLength   int     `yaml:"quote_min_length"`
	QuoteMaxLength   int     `yaml:"quote_max_length"`
	QuoteMinProb     float64 `yaml:"quote_min_prob"`
	PostsPerTopic    int     `yaml:"posts_per_topic"`
	TopWordsInTitles int     `yaml:"top_words_in_titles"`
	KeywordsPerSub   int     `yaml:"keywords_per_subreddit"`
}

// OutputConfig holds artifact locations.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file, expands ${VAR} references,
// pulls credentials from the environment and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Reddit.ClientID = os.Getenv("REDDIT_CLIENT_ID")
	cfg.Reddit.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	if ua := os.Getenv("REDDIT_USER_AGENT"); ua != "" {
		cfg.Reddit.UserAgent = ua
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields with the pipeline's fixed defaults.
func (c *Config) ApplyDefaults() {
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "banpulse data collector"
	}
	if c.Reddit.BaseURL == "" {
		c.Reddit.BaseURL = "https://oauth.reddit.com"
	}
	if c.Reddit.TokenURL == "" {
		c.Reddit.TokenURL = "https://www.reddit.com/api/v1/access_token"
	}
	if c.Reddit.TimeoutSec <= 0 {
		c.Reddit.TimeoutSec = 30
	}
	if len(c.Collect.Subreddits) == 0 {
		c.Collect.Subreddits = DefaultSubreddits()
	}
	if len(c.Collect.SearchTerms) == 0 {
		c.Collect.SearchTerms = DefaultSearchTerms()
	}
	if c.Collect.SearchLimit <= 0 {
		c.Collect.SearchLimit = 100
	}
	if c.Collect.TopComments <= 0 {
		c.Collect.TopComments = 5
	}
	if c.Collect.PostDelayMS <= 0 {
		c.Collect.PostDelayMS = 500
	}
	if c.Collect.TermDelayMS <= 0 {
		c.Collect.TermDelayMS = 1000
	}
	if c.Filters.MinLength <= 0 {
		c.Filters.MinLength = 20
	}
	if c.Filters.MinScore == 0 {
		c.Filters.MinScore = 3
	}
	if c.Filters.DateCutoff == "" {
		c.Filters.DateCutoff = "2023-10-01"
	}
	if len(c.Filters.Placeholders) == 0 {
		c.Filters.Placeholders = []string{"[deleted]", "[removed]"}
	}
	if len(c.Filters.ProfanityList) == 0 {
		c.Filters.ProfanityList = []string{"fuck", "shit", "bitch", "asshole", "dick", "bastard"}
	}
	if len(c.Filters.BanKeywords) == 0 {
		c.Filters.BanKeywords = DefaultBanKeywords()
	}
	if c.Topics.NumTopics <= 0 {
		c.Topics.NumTopics = 5
	}
	if c.Topics.Seed == 0 {
		c.Topics.Seed = 42
	}
	if c.Topics.Passes <= 0 {
		c.Topics.Passes = 10
	}
	if c.Topics.MinTokenLen <= 0 {
		c.Topics.MinTokenLen = 3
	}
	if c.Topics.MinDocFreq <= 0 {
		c.Topics.MinDocFreq = 5
	}
	if c.Topics.MaxDocRatio <= 0 {
		c.Topics.MaxDocRatio = 0.5
	}
	if c.Topics.TopWords <= 0 {
		c.Topics.TopWords = 10
	}
	if c.Report.SampleSeed == 0 {
		c.Report.SampleSeed = 42
	}
	if c.Report.SamplesPerLabel <= 0 {
		c.Report.SamplesPerLabel = 5
	}
	if c.Report.QuotesPerTopic <= 0 {
		c.Report.QuotesPerTopic = 2
	}
	if c.Report.QuoteMinLength <= 0 {
		c.Report.QuoteMinLength = 200
	}
	if c.Report.QuoteMaxLength <= 0 {
		c.Report.QuoteMaxLength = 300
	}
	if c.Report.QuoteMinProb <= 0 {
		c.Report.QuoteMinProb = 0.5
	}
	if c.Report.PostsPerTopic <= 0 {
		c.Report.PostsPerTopic = 5
	}
	if c.Report.TopWordsInTitles <= 0 {
		c.Report.TopWordsInTitles = 20
	}
	if c.Report.KeywordsPerSub <= 0 {
		c.Report.KeywordsPerSub = 5
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "results"
	}
	if c.Output.DBPath == "" {
		c.Output.DBPath = "results/banpulse.db"
	}
}

// Validate checks the configuration for correctness. Credential checks are
// done separately via RequireCredentials so that offline stages can run
// without API access.
func (c *Config) Validate() error {
	if len(c.Collect.Subreddits) == 0 {
		return fmt.Errorf("%w: collect.subreddits is empty", internalerr.ErrInvalidConfig)
	}
	if len(c.Collect.SearchTerms) == 0 {
		return fmt.Errorf("%w: collect.search_terms is empty", internalerr.ErrInvalidConfig)
	}
	if len(c.Filters.BanKeywords) == 0 {
		return fmt.Errorf("%w: filters.ban_keywords is empty", internalerr.ErrInvalidConfig)
	}
	if _, err := c.DateCutoff(); err != nil {
		return fmt.Errorf("%w: filters.date_cutoff %q: %v", internalerr.ErrInvalidConfig, c.Filters.DateCutoff, err)
	}
	if c.Topics.MaxDocRatio <= 0 || c.Topics.MaxDocRatio > 1 {
		return fmt.Errorf("%w: topics.max_doc_ratio must be in (0,1]", internalerr.ErrInvalidConfig)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", internalerr.ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}

// RequireCredentials verifies that Reddit API credentials are present.
// The collector calls this before its first request.
func (c *Config) RequireCredentials() error {
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		return fmt.Errorf("%w: set REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET", internalerr.ErrMissingCreds)
	}
	return nil
}

// DateCutoff parses the configured cutoff date.
func (c *Config) DateCutoff() (time.Time, error) {
	return time.Parse("2006-01-02", c.Filters.DateCutoff)
}

// Timeout returns the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Reddit.TimeoutSec) * time.Second
}

// DefaultSubreddits returns the fixed list of communities searched.
func DefaultSubreddits() []string {
	return []string{
		"australia",
		"AustralianPolitics",
		"technology",
		"news",
		"Futurology",
		"Parenting",
		"AskParents",
		"teenagers",
		"YouthRights",
		"DigitalRights",
		"privacy",
		"Education",
		"SocialMedia",
		"MediaSkeptic",
		"AskAnAustralian",
	}
}

// DefaultSearchTerms returns the fixed list of search phrases, covering the
// legal, parenting and youth framings of the policy debate.
func DefaultSearchTerms() []string {
	return []string{
		"Online Safety Amendment Act 2024",
		"social media age restriction Australia",
		"age verification social media Australia",
		"Online Safety Commissioner Australia",
		"Albanese social media ban",
		"Australia under 16 social media ban",
		"Australia digital ID law",
		"let kids be kids campaign",
		"parental controls on social media",
		"protecting children online",
		"social media harm to teens",
		"is TikTok dangerous for kids",
		"online safety for teenagers",
		"kids off social media",
		"teenagers banned from Instagram",
		"do teens need social media",
		"social media addiction teens Australia",
		"young people and social media ban",
		"should kids be banned from social media",
	}
}

// DefaultBanKeywords returns the keyword-gate phrase list.
func DefaultBanKeywords() []string {
	return []string{
		"social media ban",
		"under 16",
		"Online Safety",
		"age verification",
		"Albanese",
		"let kids be kids",
		"Online Safety Commissioner",
		"digital ID",
		"age restriction",
		"kids off social media",
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
