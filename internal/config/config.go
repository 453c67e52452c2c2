package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for the application
type Config struct {
	AppMode    string
	Port       string
	BcryptCost int
	Data       DataConfig
	Library LibraryConfig
	JWT     JWTConfig
	Cookie  CookieConfig
	Notify  NotifyConfig
}

// DataConfig locates the XML documents and their schemas
type DataConfig struct {
	Dir           string
	SchemasDir    string
	DTDsDir       string
	TransformsDir string
	CacheSliding  time.Duration
	CacheAbsolute time.Duration
}

// LibraryConfig holds circulation settings
type LibraryConfig struct {
	LoanDays         int
	OverdueSweepCron string
	TransformTimeout time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// NotifyConfig points overdue reminders at a staff webhook
type NotifyConfig struct {
	WebhookURL string
	Token      string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	library, err := loadLibraryConfig()
	if err != nil {
		return nil, err
	}

	bcryptCost := getEnvInt("BCRYPT_COST", 12)
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %d (must be %d-%d)", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	config := &Config{
		AppMode:    appMode,
		Port:       getEnv("PORT", "3000"),
		BcryptCost: bcryptCost,
		Data:       loadDataConfig(),
		Library:    library,
		JWT:        loadJWTConfig(appMode),
		Cookie:     loadCookieConfig(appMode),
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Token:      getEnv("NOTIFY_TOKEN", ""),
		},
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s, DATA: %s]", appMode, config.Data.Dir)
	return config, nil
}

// loadDataConfig resolves the data root and the asset folders below it
func loadDataConfig() DataConfig {
	dir := getEnv("DATA_DIR", "Data")
	sliding := getEnvInt("CACHE_SLIDING_MINUTES", 10)
	absolute := getEnvInt("CACHE_ABSOLUTE_MINUTES", 60)

	return DataConfig{
		Dir:           dir,
		SchemasDir:    getEnv("SCHEMAS_DIR", filepath.Join(dir, "Schemas")),
		DTDsDir:       getEnv("DTDS_DIR", filepath.Join(dir, "DTDs")),
		TransformsDir: getEnv("TRANSFORMS_DIR", filepath.Join(dir, "Transforms")),
		CacheSliding:  time.Duration(sliding) * time.Minute,
		CacheAbsolute: time.Duration(absolute) * time.Minute,
	}
}

// loadLibraryConfig loads loan and scheduling settings
func loadLibraryConfig() (LibraryConfig, error) {
	loanDays := getEnvInt("LOAN_DAYS", 14)
	if loanDays < 1 {
		return LibraryConfig{}, fmt.Errorf("invalid LOAN_DAYS: %d (must be at least 1)", loanDays)
	}

	return LibraryConfig{
		LoanDays:         loanDays,
		OverdueSweepCron: strings.TrimSpace(getEnv("OVERDUE_SWEEP_CRON", "5 0 * * *")),
		TransformTimeout: time.Duration(getEnvInt("TRANSFORM_TIMEOUT_SECONDS", 30)) * time.Second,
	}, nil
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  getEnvInt("ACCESS_TOKEN_MINUTES", 60),
		RefreshTokenDays: getEnvInt("REFRESH_TOKEN_DAYS", 7),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultValue
	}
	return n
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:5173"
	}
	return origins
}
