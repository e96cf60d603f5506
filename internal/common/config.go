package common

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Qualer  QualerConfig
	Graph   GraphConfig
	Sheet   SheetConfig
	Poll    PollConfig
	Upload  UploadConfig
	OCR     OCRConfig
	Journal JournalConfig
	Server  ServerConfig
	Log     LogConfig
}

// QualerConfig holds calibration API configuration
type QualerConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// CollectAssetIDs are marked collected before the asset manager list is read.
	CollectAssetIDs []int64
}

// GraphConfig holds Microsoft Graph / SharePoint configuration
type GraphConfig struct {
	Endpoint      string
	AuthorityHost string
	TenantID      string
	ClientID      string
	ClientSecret  string
	DriveID       string
	Timeout       time.Duration
}

// SheetConfig locates the spreadsheet on the drive
type SheetConfig struct {
	FilePath  string
	SheetName string
}

// PollConfig drives the polling loop
type PollConfig struct {
	Interval   time.Duration
	CutoffHour int
}

// UploadConfig holds the upload retry policy
type UploadConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	MaxPages      int
}

// JournalConfig holds the run journal database configuration
type JournalConfig struct {
	DSN string
}

// ServerConfig holds the optional health endpoint address
type ServerConfig struct {
	HealthAddr string
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads .env files and then configuration from environment variables
func LoadConfig() *Config {
	loadEnvFiles()

	httpTimeout := getEnvAsDuration("HTTP_TIMEOUT", 2*time.Minute)
	return &Config{
		Qualer: QualerConfig{
			BaseURL: getEnv("QUALER_BASE_URL", "https://jgiquality.qualer.com"),
			APIKey:  getEnv("QUALER_API_KEY", ""),
			Timeout: httpTimeout,

			CollectAssetIDs: getEnvAsInt64List("COLLECT_ASSET_IDS"),
		},
		Graph: GraphConfig{
			Endpoint:      getEnv("GRAPH_ENDPOINT", "https://graph.microsoft.com/v1.0"),
			AuthorityHost: getEnv("AZURE_AUTHORITY_HOST", "https://login.microsoftonline.com"),
			TenantID:      getEnv("AZURE_TENANT_ID", ""),
			ClientID:      getEnv("AZURE_CLIENT_ID", ""),
			ClientSecret:  getEnv("AZURE_CLIENT_SECRET", ""),
			DriveID:       getEnv("SHAREPOINT_DRIVE_ID", ""),
			Timeout:       httpTimeout,
		},
		Sheet: SheetConfig{
			FilePath:  getEnv("SHAREPOINT_FILE_PATH", "Pyro/WireSetCerts.xlsx"),
			SheetName: getEnv("SHEET_NAME", "WireSets"),
		},
		Poll: PollConfig{
			Interval:   getEnvAsDuration("POLL_INTERVAL", 10*time.Minute),
			CutoffHour: getEnvAsInt("POLL_CUTOFF_HOUR", 17),
		},
		Upload: UploadConfig{
			MaxAttempts:    getEnvAsInt("UPLOAD_MAX_ATTEMPTS", 5),
			InitialBackoff: getEnvAsDuration("UPLOAD_INITIAL_BACKOFF", 5*time.Second),
		},
		OCR: OCRConfig{
			Pdftoppm:      getEnv("PDFTOPPM_PATH", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_PATH", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Journal: JournalConfig{
			DSN: getEnv("JOURNAL_DSN", "file:wirecert-sync.db"),
		},
		Server: ServerConfig{
			HealthAddr: getEnv("HEALTH_ADDR", ""),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}
}

// loadEnvFiles loads .env then .env.local; values already in the environment win.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsInt64List parses a comma separated list of ids, skipping entries that are not integers.
func getEnvAsInt64List(key string) []int64 {
	var out []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// ValidateQualer checks what every command talking to the calibration API needs.
func (c *Config) ValidateQualer() error {
	if c.Qualer.APIKey == "" {
		return NewAppError(CodeConfig, "QUALER_API_KEY is required", ErrInvalidInput)
	}
	if c.Qualer.BaseURL == "" {
		return NewAppError(CodeConfig, "QUALER_BASE_URL is required", ErrInvalidInput)
	}
	return nil
}

// Validate validates the configuration needed by a sync pass
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateQualer(); err != nil {
		errs = append(errs, err)
	}
	required := []struct{ key, value string }{
		{"AZURE_TENANT_ID", c.Graph.TenantID},
		{"AZURE_CLIENT_ID", c.Graph.ClientID},
		{"AZURE_CLIENT_SECRET", c.Graph.ClientSecret},
		{"SHAREPOINT_DRIVE_ID", c.Graph.DriveID},
		{"SHAREPOINT_FILE_PATH", c.Sheet.FilePath},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, NewAppError(CodeConfig, r.key+" is required", ErrInvalidInput))
		}
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, NewAppError(CodeConfig, "POLL_INTERVAL must be positive", ErrInvalidInput))
	}
	if c.Poll.CutoffHour < 0 || c.Poll.CutoffHour > 24 {
		errs = append(errs, NewAppError(CodeConfig, "POLL_CUTOFF_HOUR must be within 0..24", ErrInvalidInput))
	}
	if c.Upload.MaxAttempts < 1 {
		errs = append(errs, NewAppError(CodeConfig, "UPLOAD_MAX_ATTEMPTS must be at least 1", ErrInvalidInput))
	}
	return errors.Join(errs...)
}
