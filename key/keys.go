// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Playback - these keys select and tune the external media player.
const (
	Player             = "player.default"
	PlayerResume       = "player.resume"
	PlayerResumeNotify = "player.resume_notify"
)

// History - these keys configure the resume/history store.
const (
	HistorySaveOnPlay    = "history.save_on_play"
	HistoryBackend       = "history.backend"
	HistorySqlitePath    = "history.sqlite_path"
	HistoryRedisAddr     = "history.redis_addr"
	HistoryRedisPassword = "history.redis_password"
	HistoryRedisDB       = "history.redis_db"
	HistoryRedisPrefix   = "history.redis_prefix"
)

// Iconography
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI
const (
	CliColored = "cli.colored"
)
