package constants

const (
	AppName            = "streaks"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/streaks"
	DefaultConfigFile  = "~/.config/streaks/config.yaml"
	DefaultStorePath   = "~/.config/streaks/data"
	Version            = "v0.3.0"

	// DateFormat is the calendar-day format used for completion logs (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Collection namespaces, one persisted blob per entity type
	HabitsNamespace = "SavedHabits"
	TasksNamespace  = "SavedTasks"

	// Habit defaults
	DefaultTargetFrequency = 7
	MinTargetFrequency     = 1
	MaxTargetFrequency     = 7

	// Backend names
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "streaks-"

	// Lockfile
	LockfileName = "streaks.lock"

	// Redis key prefix for collection blobs
	RedisKeyPrefix = "streaks:"

	// DefaultListenAddr is used by `streaks serve`
	DefaultListenAddr = "127.0.0.1:7420"
)
