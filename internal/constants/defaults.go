package constants

// Default dispatcher configuration values
const (
	DefaultDispatchIntervalSec   = 60
	DefaultDispatchBatchSize     = 50
	DefaultInterSendDelayMs      = 1500
	DefaultProcessingStaleMin    = 10
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
)

// Default reconciler configuration values
const (
	DefaultPollIntervalSec   = 120
	DefaultPollBatchSize     = 5
	DefaultInterBatchDelayMs = 2000
	DefaultStuckFloorSec     = 60
	DefaultStuckWindowHours  = 48
	DefaultPollSweepLimit    = 100
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultServerPort            = 8084
)

// Content variation defaults
const (
	DefaultVariatorMinLength  = 20
	DefaultVariatorTimeoutSec = 15
	DefaultVariatorModel      = "gpt-4o-mini"
)

// Encryption parameters
const (
	EncryptionSalt       = "mensageiro-db-salt-v1"
	EncryptionLookupSalt = "mensageiro-lookup-salt-v1"
	KeyDerivationIters   = 100000
	KeySize              = 32
	NonceSize            = 12
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
)

const ServerErrorChannelSize = 1
