package config

import (
	"encoding/json"
	"fmt"
	"os"

	"mensageiro/internal/constants"
	"mensageiro/internal/models"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Providers.SMS.Enabled && c.Providers.SMS.APIKey == "" {
		return models.ConfigError{Message: "SMS provider enabled but API key not set"}
	}
	if c.Providers.WACloud.Enabled {
		if c.Providers.WACloud.AccessToken == "" {
			return models.ConfigError{Message: "WhatsApp cloud provider enabled but access token not set"}
		}
		if c.Providers.WACloud.PhoneNumberID == "" {
			return models.ConfigError{Message: "WhatsApp cloud provider enabled but phone number ID not set"}
		}
	}
	if c.Providers.ZAPI.Enabled && c.Providers.ZAPI.ClientToken == "" {
		return models.ConfigError{Message: "ZAPI provider enabled but client token not set"}
	}
	if c.Providers.Email.Enabled && c.Providers.Email.APIKey == "" {
		return models.ConfigError{Message: "email provider enabled but API key not set"}
	}

	switch c.Providers.WhatsApp.ActiveProvider {
	case "":
		c.Providers.WhatsApp.ActiveProvider = "wacloud"
	case "wacloud", "zapi":
	default:
		return models.ConfigError{Message: fmt.Sprintf("unknown active WhatsApp provider: %s", c.Providers.WhatsApp.ActiveProvider)}
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}

	if c.Dispatcher.IntervalSec <= 0 {
		c.Dispatcher.IntervalSec = constants.DefaultDispatchIntervalSec
	}
	if c.Dispatcher.BatchSize <= 0 {
		c.Dispatcher.BatchSize = constants.DefaultDispatchBatchSize
	}
	if c.Dispatcher.InterSendDelayMs <= 0 {
		c.Dispatcher.InterSendDelayMs = constants.DefaultInterSendDelayMs
	}
	if c.Dispatcher.ProcessingStaleMin <= 0 {
		c.Dispatcher.ProcessingStaleMin = constants.DefaultProcessingStaleMin
	}

	if c.Reconciler.PollIntervalSec <= 0 {
		c.Reconciler.PollIntervalSec = constants.DefaultPollIntervalSec
	}
	if c.Reconciler.BatchSize <= 0 {
		c.Reconciler.BatchSize = constants.DefaultPollBatchSize
	}
	if c.Reconciler.InterBatchDelayMs <= 0 {
		c.Reconciler.InterBatchDelayMs = constants.DefaultInterBatchDelayMs
	}
	if c.Reconciler.StuckFloorSec <= 0 {
		c.Reconciler.StuckFloorSec = constants.DefaultStuckFloorSec
	}
	if c.Reconciler.StuckWindowHours <= 0 {
		c.Reconciler.StuckWindowHours = constants.DefaultStuckWindowHours
	}
	if c.Reconciler.SweepLimit <= 0 {
		c.Reconciler.SweepLimit = constants.DefaultPollSweepLimit
	}

	if c.Variator.MinLength <= 0 {
		c.Variator.MinLength = constants.DefaultVariatorMinLength
	}
	if c.Variator.TimeoutSec <= 0 {
		c.Variator.TimeoutSec = constants.DefaultVariatorTimeoutSec
	}
	if c.Variator.Model == "" {
		c.Variator.Model = constants.DefaultVariatorModel
	}
	if c.Variator.Enabled && c.Variator.APIKey == "" {
		return models.ConfigError{Message: "content variator enabled but API key not set"}
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	return nil
}

// applyEnvironmentOverrides lets secrets come from the environment instead of
// the config file.
func applyEnvironmentOverrides(c *models.Config) {
	if key := os.Getenv("SMSDEV_API_KEY"); key != "" {
		c.Providers.SMS.APIKey = key
	}
	if token := os.Getenv("WACLOUD_ACCESS_TOKEN"); token != "" {
		c.Providers.WACloud.AccessToken = token
	}
	if token := os.Getenv("WACLOUD_VERIFY_TOKEN"); token != "" {
		c.Providers.WACloud.VerifyToken = token
	}
	if token := os.Getenv("ZAPI_CLIENT_TOKEN"); token != "" {
		c.Providers.ZAPI.ClientToken = token
	}
	if key := os.Getenv("MAILER_API_KEY"); key != "" {
		c.Providers.Email.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Variator.APIKey = key
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
}
