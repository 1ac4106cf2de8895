package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	PaymentGatewayBaseURL            string `mapstructure:"PAYMENT_GATEWAY_BASE_URL"`
	PaymentGatewayAPIKey             string `mapstructure:"PAYMENT_GATEWAY_API_KEY"`
	PaymentWebhookSecret             string `mapstructure:"PAYMENT_WEBHOOK_SECRET"`
	PaymentCallbackURL               string `mapstructure:"PAYMENT_CALLBACK_URL"`
	GenerationBaseURL                string `mapstructure:"GENERATION_BASE_URL"`
	GenerationAPIKey                 string `mapstructure:"GENERATION_API_KEY"`
	GenerationCallbackURL            string `mapstructure:"GENERATION_CALLBACK_URL"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
}

var appConfig *Config

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")

	// Bind environment variables
	viper.BindEnv("PORT")
	viper.BindEnv("GIN_MODE")
	viper.BindEnv("FIREBASE_PROJECT_ID")
	viper.BindEnv("GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64")
	viper.BindEnv("PAYMENT_GATEWAY_BASE_URL")
	viper.BindEnv("PAYMENT_GATEWAY_API_KEY")
	viper.BindEnv("PAYMENT_WEBHOOK_SECRET")
	viper.BindEnv("PAYMENT_CALLBACK_URL")
	viper.BindEnv("GENERATION_BASE_URL")
	viper.BindEnv("GENERATION_API_KEY")
	viper.BindEnv("GENERATION_CALLBACK_URL")
	viper.BindEnv("CLIENT_URL")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Validate required fields. The payment and generation providers are
	// optional so local development can run without live credentials; their
	// clients refuse calls when unconfigured.
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}

	appConfig = &cfg
	return appConfig, nil
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
