package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GitHubToken string `yaml:"github_token"`
	GitHubRepo  string `yaml:"github_repo"` // "owner/name"

	ProductArea string   `yaml:"product_area"`
	Keywords    []string `yaml:"keywords"`
	SinceDays   int      `yaml:"since_days"`

	LLMProvider     string  `yaml:"llm_provider"` // "anthropic" or "local"
	LLMModel        string  `yaml:"llm_model"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	LocalBaseURL    string  `yaml:"local_base_url"`
	BatchSize       int     `yaml:"batch_size"`
	MaxRetries      int     `yaml:"max_retries"`
	RequestTimeout  int     `yaml:"request_timeout_seconds"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`

	RelevanceThreshold float64 `yaml:"relevance_threshold"`

	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	AnalysisSchedule string `yaml:"analysis_schedule"` // 5-field cron expression
	Timezone         string `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultLocalModel = "llama-3.1-8b-instruct"
const defaultLocalBaseURL = "http://127.0.0.1:1337"

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.GitHubToken, "GITHUB_TOKEN")
	envOverride(&cfg.GitHubRepo, "GITHUB_REPO")
	envOverride(&cfg.ProductArea, "PRODUCT_AREA")
	envOverrideInt(&cfg.SinceDays, "SINCE_DAYS")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LocalBaseURL, "LOCAL_BASE_URL")
	envOverrideInt(&cfg.BatchSize, "BATCH_SIZE")
	envOverrideInt(&cfg.MaxRetries, "MAX_RETRIES")
	envOverrideInt(&cfg.RequestTimeout, "REQUEST_TIMEOUT_SECONDS")
	envOverrideFloat(&cfg.Temperature, "TEMPERATURE")
	envOverrideInt(&cfg.MaxTokens, "MAX_TOKENS")
	envOverrideFloat(&cfg.RelevanceThreshold, "RELEVANCE_THRESHOLD")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.AnalysisSchedule, "ANALYSIS_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if names := os.Getenv("KEYWORDS"); names != "" {
		cfg.Keywords = nil
		for _, kw := range strings.Split(names, ",") {
			kw = strings.TrimSpace(kw)
			if kw != "" {
				cfg.Keywords = append(cfg.Keywords, kw)
			}
		}
	}

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.LLMModel == "" {
		switch cfg.LLMProvider {
		case "local":
			cfg.LLMModel = defaultLocalModel
		default:
			cfg.LLMModel = defaultAnthropicModel
		}
	}
	if cfg.LocalBaseURL == "" {
		cfg.LocalBaseURL = defaultLocalBaseURL
	}
	if cfg.SinceDays == 0 {
		cfg.SinceDays = 90
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.RelevanceThreshold == 0 {
		cfg.RelevanceThreshold = 0.15
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./issuelens.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"github_token": cfg.GitHubToken,
		"github_repo":  cfg.GitHubRepo,
		"product_area": cfg.ProductArea,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}
	if !strings.Contains(cfg.GitHubRepo, "/") {
		log.Fatalf("github_repo must be 'owner/name', got '%s'", cfg.GitHubRepo)
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "local":
		if cfg.LocalBaseURL == "" {
			log.Fatalf("local_base_url is required when llm_provider=local")
		}
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'local', got '%s'", cfg.LLMProvider)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.BatchSize < 1 {
		log.Fatalf("invalid batch_size '%d': must be >= 1", cfg.BatchSize)
	}
	if cfg.MaxRetries < 0 {
		log.Fatalf("invalid max_retries '%d': must be >= 0", cfg.MaxRetries)
	}
	if cfg.RequestTimeout < 1 {
		log.Fatalf("invalid request_timeout_seconds '%d': must be >= 1", cfg.RequestTimeout)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		log.Fatalf("invalid temperature '%f': must be between 0 and 2", cfg.Temperature)
	}
	if cfg.RelevanceThreshold < 0 || cfg.RelevanceThreshold > 1 {
		log.Fatalf("invalid relevance_threshold '%f': must be between 0 and 1", cfg.RelevanceThreshold)
	}
	if cfg.SinceDays < 1 {
		log.Fatalf("invalid since_days '%d': must be >= 1", cfg.SinceDays)
	}

	return cfg
}

// EngineConfig carries the engine's knobs explicitly so the engine never
// reads ambient configuration.
func (c Config) EngineConfig() EngineConfig {
	return EngineConfig{
		BatchSize:      c.BatchSize,
		MaxRetries:     c.MaxRetries,
		RequestTimeout: time.Duration(c.RequestTimeout) * time.Second,
		Temperature:    c.Temperature,
		MaxTokens:      c.MaxTokens,
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
