package models

// Config holds the application configuration
type Config struct {
	Providers  ProviderConfig   `json:"providers"`
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Dispatcher DispatcherConfig `json:"dispatcher"`
	Reconciler ReconcilerConfig `json:"reconciler"`
	Variator   VariatorConfig   `json:"variator"`
	Retry      RetryConfig      `json:"retry"`
	LogLevel   string           `json:"log_level"`

	// DisabledCategories lists template categories for which automated sends
	// are globally switched off.
	DisabledCategories []string `json:"disabled_categories"`
}

// ProviderConfig is loaded once per invocation and passed by parameter; no
// component reads provider state ad hoc mid-call.
type ProviderConfig struct {
	SMS      SMSProviderConfig    `json:"sms"`
	WACloud  WACloudConfig        `json:"wacloud"`
	ZAPI     ZAPIConfig           `json:"zapi"`
	Email    EmailProviderConfig  `json:"email"`
	WhatsApp WhatsAppRouterConfig `json:"whatsapp"`
}

// WhatsAppRouterConfig selects between the two WhatsApp transports.
type WhatsAppRouterConfig struct {
	// ActiveProvider is "wacloud" or "zapi".
	ActiveProvider  string   `json:"active_provider"`
	FallbackEnabled bool     `json:"fallback_enabled"`
	TestMode        bool     `json:"test_mode"`
	TestAllowlist   []string `json:"test_allowlist"`
}

type SMSProviderConfig struct {
	Enabled    bool   `json:"enabled"`
	APIBaseURL string `json:"api_base_url"`
	APIKey     string `json:"api_key"`
	TimeoutSec int    `json:"timeout_sec"`
}

type WACloudConfig struct {
	Enabled       bool   `json:"enabled"`
	APIBaseURL    string `json:"api_base_url"`
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	VerifyToken   string `json:"verify_token"`
	TimeoutSec    int    `json:"timeout_sec"`
}

type ZAPIConfig struct {
	Enabled     bool   `json:"enabled"`
	APIBaseURL  string `json:"api_base_url"`
	InstanceID  string `json:"instance_id"`
	ClientToken string `json:"client_token"`
	TimeoutSec  int    `json:"timeout_sec"`
}

type EmailProviderConfig struct {
	Enabled    bool   `json:"enabled"`
	APIBaseURL string `json:"api_base_url"`
	APIKey     string `json:"api_key"`
	FromEmail  string `json:"from_email"`
	FromName   string `json:"from_name"`
	TimeoutSec int    `json:"timeout_sec"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

// DispatcherConfig controls the scheduled-send pass.
type DispatcherConfig struct {
	IntervalSec        int `json:"interval_sec"`
	BatchSize          int `json:"batch_size"`
	InterSendDelayMs   int `json:"inter_send_delay_ms"`
	ProcessingStaleMin int `json:"processing_stale_min"`
}

// ReconcilerConfig controls the status poll sweep.
type ReconcilerConfig struct {
	PollIntervalSec   int `json:"poll_interval_sec"`
	BatchSize         int `json:"batch_size"`
	InterBatchDelayMs int `json:"inter_batch_delay_ms"`
	StuckFloorSec     int `json:"stuck_floor_sec"`
	StuckWindowHours  int `json:"stuck_window_hours"`
	SweepLimit        int `json:"sweep_limit"`
}

type VariatorConfig struct {
	Enabled            bool    `json:"enabled"`
	APIBaseURL         string  `json:"api_base_url"`
	APIKey             string  `json:"api_key"`
	Model              string  `json:"model"`
	Temperature        float32 `json:"temperature"`
	MinLength          int     `json:"min_length"`
	TimeoutSec         int     `json:"timeout_sec"`
	RedactPersonalData bool    `json:"redact_personal_data"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initial_backoff_ms"`
	MaxBackoffMs     int `json:"max_backoff_ms"`
	MaxAttempts      int `json:"max_attempts"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
