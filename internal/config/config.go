package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"faktura/internal/logger"
)

// Store backends
const (
	BackendSheets   = "sheets"
	BackendWorkbook = "workbook"
)

// Authentication methods for Google APIs and SMTP
const (
	AuthServiceAccount = "service_account"
	AuthOAuth          = "oauth"
	AuthPassword       = "password"
)

// ErrMissingSetting is returned when a command needs a setting that is not configured.
var ErrMissingSetting = errors.New("missing configuration")

type Config struct {
	// Store Configuration
	StoreBackend   string
	GoogleSheetURL string
	SpreadsheetID  string
	WorkbookPath   string
	CustomersSheet string
	TasksSheet     string
	TaskTypesSheet string
	CompanySheet   string

	// Google Authentication
	AuthMethod               string
	GoogleServiceAccountFile string
	GoogleCredentialsJSON    string
	OAuthClientSecretFile    string
	OAuthTokenFile           string

	// Google Drive Configuration
	DriveUpload        bool
	DriveFolder        string
	DriveSharedDriveID string

	// Mail Configuration
	SMTPServer            string
	SMTPPort              int
	SenderEmail           string
	SenderPassword        string
	EmailAuthMethod       string
	GmailClientSecretFile string
	GmailTokenFile        string
	BookkeepingEmail      string
	EmailBrand            string

	// Invoicing Configuration
	DefaultHourlyRate  string
	PaymentTermsDays   int
	InvoicesDir        string
	ArchiveDir         string
	NumberingFile      string
	InvoicedTasksFile  string
	CompanyDetailsFile string
	LogoPath           string
	NetworkTimeout     time.Duration

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		StoreBackend:             strings.ToLower(getEnv("STORE_BACKEND", BackendSheets)),
		GoogleSheetURL:           getEnv("GOOGLE_SHEET_URL", ""),
		SpreadsheetID:            getEnv("SPREADSHEET_ID", ""),
		WorkbookPath:             getEnv("WORKBOOK_PATH", "faktura.xlsx"),
		CustomersSheet:           getEnv("CUSTOMERS_SHEET", "Kunder"),
		TasksSheet:               getEnv("TASKS_SHEET", "Opgave"),
		TaskTypesSheet:           getEnv("TASKTYPES_SHEET", "Tasktype"),
		CompanySheet:             getEnv("COMPANY_SHEET", "Company Details"),
		AuthMethod:               strings.ToLower(getEnv("AUTH_METHOD", AuthServiceAccount)),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleCredentialsJSON:    getEnv("GOOGLE_CREDENTIALS", ""),
		OAuthClientSecretFile:    getEnv("OAUTH_CLIENT_SECRET_FILE", "credentials.json"),
		OAuthTokenFile:           getEnv("OAUTH_TOKEN_FILE", "token.json"),
		DriveFolder:              getEnv("GOOGLE_DRIVE_FOLDER", "stfaktura"),
		DriveSharedDriveID:       getEnv("GOOGLE_DRIVE_SHARED_DRIVE_ID", ""),
		SMTPServer:               getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SenderEmail:              getEnv("SENDER_EMAIL", ""),
		SenderPassword:           getEnv("SENDER_PASSWORD", ""),
		EmailAuthMethod:          strings.ToLower(getEnv("EMAIL_AUTH_METHOD", AuthPassword)),
		GmailClientSecretFile:    getEnv("GMAIL_CLIENT_SECRET_FILE", "gmail_credentials.json"),
		GmailTokenFile:           getEnv("GMAIL_TOKEN_FILE", "gmail_token.json"),
		BookkeepingEmail:         getEnv("BOOKKEEPING_EMAIL", "indtaegt@ebogholderen.dk"),
		EmailBrand:               getEnv("EMAIL_BRAND", "ST Digital"),
		DefaultHourlyRate:        getEnv("DEFAULT_HOURLY_RATE", "500"),
		InvoicesDir:              getEnv("INVOICES_DIR", "invoices"),
		ArchiveDir:               getEnv("ARCHIVE_DIR", "Fakturaer"),
		NumberingFile:            getEnv("INVOICE_NUMBERING_FILE", "invoice_numbering.json"),
		InvoicedTasksFile:        getEnv("INVOICED_TASKS_FILE", "invoiced_tasks.json"),
		CompanyDetailsFile:       getEnv("COMPANY_DETAILS_FILE", "st-faktura.json"),
		LogoPath:                 getEnv("LOGO_PATH", "logo.gif"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:            getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                getEnv("LOG_OUTPUT", logger.DefaultFile),
	}

	var err error
	if config.SMTPPort, err = getEnvInt("SMTP_PORT", 587); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.PaymentTermsDays, err = getEnvInt("PAYMENT_TERMS_DAYS", 0); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.NetworkTimeout, err = getEnvDuration("NETWORK_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.DriveUpload, err = getEnvBool("DRIVE_UPLOAD", config.StoreBackend == BackendSheets); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSheets, BackendWorkbook:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSheets, BackendWorkbook, c.StoreBackend)
	}
	switch c.AuthMethod {
	case AuthServiceAccount, AuthOAuth:
	default:
		return fmt.Errorf("AUTH_METHOD must be %q or %q, got %q", AuthServiceAccount, AuthOAuth, c.AuthMethod)
	}
	switch c.EmailAuthMethod {
	case AuthPassword, AuthOAuth:
	default:
		return fmt.Errorf("EMAIL_AUTH_METHOD must be %q or %q, got %q", AuthPassword, AuthOAuth, c.EmailAuthMethod)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.SMTPPort)
	}
	if c.PaymentTermsDays < 0 {
		return fmt.Errorf("PAYMENT_TERMS_DAYS must not be negative, got %d", c.PaymentTermsDays)
	}
	if c.NetworkTimeout <= 0 {
		return fmt.Errorf("NETWORK_TIMEOUT must be positive")
	}
	return nil
}

// RequireStore checks the settings needed to reach the customer and task store.
func (c *Config) RequireStore() error {
	if c.StoreBackend == BackendWorkbook {
		if c.WorkbookPath == "" {
			return fmt.Errorf("%w: WORKBOOK_PATH is required when STORE_BACKEND=workbook", ErrMissingSetting)
		}
		return nil
	}
	if c.GoogleSheetURL == "" && c.SpreadsheetID == "" {
		return fmt.Errorf("%w: set GOOGLE_SHEET_URL (or SPREADSHEET_ID) to the spreadsheet holding customers and tasks", ErrMissingSetting)
	}
	if c.AuthMethod == AuthServiceAccount && c.GoogleServiceAccountFile == "" && c.GoogleCredentialsJSON == "" {
		return fmt.Errorf("%w: set GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_CREDENTIALS, or use AUTH_METHOD=oauth", ErrMissingSetting)
	}
	return nil
}

// RequireMail checks the settings needed to send invoices by email.
func (c *Config) RequireMail() error {
	if c.SenderEmail == "" {
		return fmt.Errorf("%w: SENDER_EMAIL is required to send invoices", ErrMissingSetting)
	}
	if c.EmailAuthMethod == AuthPassword && c.SenderPassword == "" {
		return fmt.Errorf("%w: SENDER_PASSWORD is required with EMAIL_AUTH_METHOD=password (use an app password for Gmail)", ErrMissingSetting)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", key, value)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30s, got %q", key, value)
	}
	return d, nil
}
