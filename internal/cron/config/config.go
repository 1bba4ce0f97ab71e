package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Incremental mailbox sync, every 15 minutes
	CronScheduleSync string `env:"CRON_SCHEDULE_SYNC" envDefault:"0 */15 * * * *"`
}
