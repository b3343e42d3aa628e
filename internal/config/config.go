package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config carries every setting the service needs. It is built once at
// process start, validated once, and passed explicitly to each component.
type Config struct {
	Port    string
	GinMode string

	// Managed identity. Endpoint and header are injected into the
	// environment by the hosting platform.
	IdentityEndpoint string
	IdentityHeader   string

	// Remote graph API.
	GraphBaseURL        string
	GraphResource       string
	GraphUserID         string
	GraphTimeoutSeconds int

	// Chain rule document location in the remote drive.
	RulesDriveID  string
	RulesFilePath string

	// Default list for recurring tasks.
	HomeListID string

	// Webhook subscription renewal.
	RenewalSchedule         string
	RenewalLookaheadHours   int
	RenewalExtensionMinutes int

	// Server
	ServerShutdownTimeoutSeconds int

	// Logging
	LogLevel  string
	LogFormat string

	// Recurring task jobs, loaded from the config file.
	Recurring *RecurringConfig `yaml:"recurring"`
}

// Load builds the configuration from the environment and the YAML config
// file named by CONFIG_FILE (default config.yaml).
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		IdentityEndpoint: getEnvOrDefault("IDENTITY_ENDPOINT", ""),
		IdentityHeader:   getEnvOrDefault("IDENTITY_HEADER", ""),

		GraphBaseURL:        getEnvOrDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		GraphResource:       getEnvOrDefault("GRAPH_RESOURCE", "https://graph.microsoft.com"),
		GraphUserID:         getEnvOrDefault("GRAPH_USER_ID", ""),
		GraphTimeoutSeconds: getEnvAsInt("GRAPH_TIMEOUT_SECONDS", 30),

		RulesDriveID:  getEnvOrDefault("RULES_DRIVE_ID", ""),
		RulesFilePath: getEnvOrDefault("RULES_FILE_PATH", ""),

		HomeListID: getEnvOrDefault("HOME_LIST_ID", ""),

		RenewalSchedule:         getEnvOrDefault("RENEWAL_SCHEDULE", "0 7 * * *"),
		RenewalLookaheadHours:   getEnvAsInt("RENEWAL_LOOKAHEAD_HOURS", 48),
		RenewalExtensionMinutes: getEnvAsInt("RENEWAL_EXTENSION_MINUTES", 4200),

		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	configFilePath := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	log.Printf("Loading config file: %v", configFilePath)

	configFile, err := os.Open(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer configFile.Close()

	if err := LoadConfigFile(configFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings every component depends on. Called once at
// startup so components can assume a well-formed config afterwards.
func (c *Config) Validate() error {
	if c.GraphUserID == "" {
		return fmt.Errorf("GRAPH_USER_ID is required")
	}
	if c.RulesDriveID == "" || c.RulesFilePath == "" {
		return fmt.Errorf("RULES_DRIVE_ID and RULES_FILE_PATH are required")
	}
	if c.RenewalLookaheadHours <= 0 || c.RenewalExtensionMinutes <= 0 {
		return fmt.Errorf("renewal lookahead and extension must be positive")
	}
	if c.Recurring != nil {
		if err := c.Recurring.Validate(); err != nil {
			return fmt.Errorf("recurring config: %w", err)
		}
	}

	if c.IdentityEndpoint == "" || c.IdentityHeader == "" {
		log.Println("Warning: Managed identity environment variables are missing. Please set IDENTITY_ENDPOINT and IDENTITY_HEADER.")
	}
	if c.HomeListID == "" {
		log.Println("Warning: HOME_LIST_ID is missing. Recurring jobs without an explicit list will fail.")
	}

	return nil
}

// LoadConfigFile decodes YAML settings from reader into config.
func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(config); err != nil {
		return err
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}
