package common

import "time"

const (
	// envs:
	LocalEnv = "local"
	ProEnv   = "pro"

	// OS:
	WindowsOS = "windows"
	LinuxOS   = "linux"
	MacOS     = "darwin"

	// DB drivers:
	SQLiteDriver   = "sqlite"
	PostgresDriver = "postgres"
	MySQLDriver    = "mysql"

	// DefaultLockTimeout is how long a claimed message stays hidden from other consumers.
	DefaultLockTimeout = 10 * time.Second
	// MinLockTimeout is the resolution of locked_until on every backend.
	MinLockTimeout = time.Millisecond

	// RegistryTable keeps track of the queue tables created through this module.
	RegistryTable = "myqueue_queues"

	// pop phases, used as the partial delivery label:
	FetchPhase  = "fetch"
	DeletePhase = "delete"
)

var (
	SupportedEnvs = map[string]bool{
		LocalEnv: true,
		ProEnv:   true,
	}

	SupportedDrivers = map[string]bool{
		SQLiteDriver:   true,
		PostgresDriver: true,
		MySQLDriver:    true,
	}
)
