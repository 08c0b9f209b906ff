package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/filtering"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/ranking"
	"github.com/spigell/matchmaker/internal/server"
	"github.com/spigell/matchmaker/internal/session"
	"github.com/spigell/matchmaker/internal/vehicle"
)

const (
	app = "matchmaker"
)

type Config struct {
	InventoryFile string               `mapstructure:"inventory-file"`
	Preferences   *vehicle.Preferences `mapstructure:"preferences"`
	Scoring       ScoringConfig        `mapstructure:"scoring"`
	Filters       *filtering.Config    `mapstructure:"filters"`
	AI            *AIConfig            `mapstructure:"ai"`
	Server        server.Config        `mapstructure:"server"`
}

type ScoringConfig struct {
	ColorLearning bool `mapstructure:"color-learning"`
}

type AIConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	Provider       string         `mapstructure:"provider"`
	Variant        string         `mapstructure:"variant"`
	BatchSize      int            `mapstructure:"batch-size"`
	BatchDelay     time.Duration  `mapstructure:"batch-delay"`
	RequestTimeout time.Duration  `mapstructure:"request-timeout"`
	Gemini         *GeminiConfig  `mapstructure:"gemini"`
	Gateway        *GatewayConfig `mapstructure:"gateway"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type GatewayConfig struct {
	URL          string `mapstructure:"url"`
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchmaker ranks vehicle listings against a buyer's preferences and swipe history",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"inventory-file":          "MATCHMAKER_INVENTORY_FILE",
		"ai.gemini.api-key-file":  "GEMINI_API_KEY_FILE",
		"ai.gateway.api-key-file": "GATEWAY_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchmaker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("filters.skip-swiped", true)
	viper.SetDefault("filters.budget-ceiling.ratio", filtering.DefaultCeilingRatio)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.variant", "grade")
	viper.SetDefault("ai.batch-size", ranking.DefaultBatchSize)
	viper.SetDefault("ai.batch-delay", ranking.DefaultBatchDelay)
	viper.SetDefault("ai.request-timeout", ranking.DefaultRequestTimeout)
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 500)
	viper.SetDefault("ai.gateway.max-log-length", 500)
	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("server.read-timeout", server.DefaultReadTimeout)
	viper.SetDefault("server.write-timeout", server.DefaultWriteTimeout)
	viper.SetDefault("server.max-sessions", session.DefaultMaxSessions)
	viper.SetDefault("server.session-idle-ttl", session.DefaultIdleTTL)
}

func initConfig() {
	// A missing .env is fine; keys may come from the real environment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	// Without an explicit file every command runs on defaults.
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	log.Fatal(err)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Preferences == nil {
		config.Preferences = vehicle.DefaultPreferences()
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Filters == nil {
		config.Filters = filtering.DefaultConfig()
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// mustSetup builds the logger and reads the config, exiting on failure.
func mustSetup() (*zap.Logger, *Config) {
	l := newLogger()

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	return l, config
}
