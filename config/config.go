package config

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"11433"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"MAILSIFT_POSTGRES_HOST,required"`
	Port            string `env:"MAILSIFT_POSTGRES_PORT,required"`
	User            string `env:"MAILSIFT_POSTGRES_USER,required"`
	DBName          string `env:"MAILSIFT_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILSIFT_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILSIFT_POSTGRES_DB_MAX_CONN" envDefault:"50"`
	MaxIdleConn     int    `env:"MAILSIFT_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"MAILSIFT_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"300"`
	LogLevel        string `env:"MAILSIFT_POSTGRES_LOG_LEVEL" envDefault:"warn"`
	SSLMode         string `env:"MAILSIFT_POSTGRES_SSL_MODE" envDefault:"disable"`
}

type IMAPConfig struct {
	Server    string `env:"IMAP_SERVER,required"`
	Port      int    `env:"IMAP_PORT" envDefault:"993"`
	Username  string `env:"IMAP_USERNAME,required"`
	Password  string `env:"IMAP_PASSWORD,required"`
	Folder    string `env:"IMAP_FOLDER" envDefault:"INBOX"`
	MailboxID string `env:"IMAP_MAILBOX_ID" envDefault:"primary"`
}

// AIConfig holds the environment defaults for classification. A stored
// ai_settings row overrides these per mailbox.
type AIConfig struct {
	Mode             string `env:"AI_MODE" envDefault:"local"`
	LocalModel       string `env:"AI_LOCAL_MODEL" envDefault:"llama3.1:8b"`
	LocalHost        string `env:"AI_LOCAL_HOST" envDefault:"http://localhost:11434"`
	APIProvider      string `env:"AI_API_PROVIDER" envDefault:"openai"`
	APIModel         string `env:"AI_API_MODEL"`
	APIKey           string `env:"AI_API_KEY"`
	ConfirmBeforeAPI bool   `env:"AI_CONFIRM_BEFORE_API" envDefault:"false"`
}

// SyncConfig carries the two sync profiles plus the global per-run cap.
// First syncs walk a wider window gently; incremental syncs take bigger
// batches with shorter pauses.
type SyncConfig struct {
	FirstSyncDays            int `env:"FIRST_SYNC_DAYS" envDefault:"7"`
	FirstSyncBatchSize       int `env:"FIRST_SYNC_BATCH_SIZE" envDefault:"10"`
	FirstSyncDelayMs         int `env:"FIRST_SYNC_DELAY_MS" envDefault:"500"`
	IncrementalSyncDays      int `env:"INCREMENTAL_SYNC_DAYS" envDefault:"3"`
	IncrementalSyncBatchSize int `env:"INCREMENTAL_SYNC_BATCH_SIZE" envDefault:"20"`
	IncrementalSyncDelayMs   int `env:"INCREMENTAL_SYNC_DELAY_MS" envDefault:"200"`
	MaxEmailsPerSync         int `env:"MAX_EMAILS_PER_SYNC" envDefault:"200"`
}

type StorageConfig struct {
	Enabled         bool   `env:"STORAGE_ENABLED" envDefault:"false"`
	Provider        string `env:"STORAGE_PROVIDER" envDefault:"r2"`
	RawEmailBucket  string `env:"BUCKET_NAME_RAW_EMAIL" envDefault:"mailsift-raw"`
	R2AccountID     string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"STORAGE_ACCESS_KEY_SECRET"`
	AWSRegion       string `env:"AWS_REGION" envDefault:"us-east-1"`
}
