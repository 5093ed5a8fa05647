package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	BindAddr string
	DBPath   string

	AdminSecret       string
	AdminSecretIsDev  bool
	SeedFile          string

	LogLevel  string
	LogFormat string
	LogFile   string

	MetricsAddr string

	MaxRooms           int
	TimerGraceSeconds  int
	TimerSweepInterval time.Duration

	ShutdownTimeout time.Duration
}

// devAdminSecret is used only when TESTSERVER_ADMIN_SECRET is unset.
// It MUST NOT be relied on outside local development; Entrypoint logs a
// warning (via ValidateSecurityConfig) whenever it is in effect.
const devAdminSecret = "network_programming"

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	secret := EnvString("TESTSERVER_ADMIN_SECRET", "")
	isDev := secret == ""
	if isDev {
		secret = devAdminSecret
	}

	return Config{
		BindAddr: EnvString("TESTSERVER_BIND_ADDR", "0.0.0.0:9000"),
		DBPath:   EnvString("TESTSERVER_DB_PATH", "./testserver.db"),

		AdminSecret:      secret,
		AdminSecretIsDev: isDev,
		SeedFile:         EnvString("TESTSERVER_SEED_FILE", ""),

		LogLevel:  EnvString("TESTSERVER_LOG_LEVEL", "info"),
		LogFormat: EnvString("TESTSERVER_LOG_FORMAT", "auto"),
		LogFile:   EnvString("TESTSERVER_LOG_FILE", ""),

		MetricsAddr: EnvString("TESTSERVER_METRICS_ADDR", ""),

		MaxRooms:           EnvInt("TESTSERVER_MAX_ROOMS", 100),
		TimerGraceSeconds:  EnvInt("TESTSERVER_TIMER_GRACE_SECONDS", 2),
		TimerSweepInterval: EnvDuration("TESTSERVER_TIMER_SWEEP_INTERVAL", 1*time.Second),

		ShutdownTimeout: EnvDuration("TESTSERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}
