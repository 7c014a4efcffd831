package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"5000"`

	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	TokenTTLHours int    `envconfig:"TOKEN_TTL_HOURS" default:"8"`

	// Inactivity sweep: users without a login for this many days are flagged.
	CronSchedule   string `envconfig:"CRON_SCHEDULE" default:"@every 24h"`
	InactivityDays int    `envconfig:"INACTIVITY_DAYS" default:"60"`

	// Optional archive for generated report exports. Disabled when the
	// bucket is empty.
	ExportS3Key    string `envconfig:"EXPORT_S3_KEY"`
	ExportS3Secret string `envconfig:"EXPORT_S3_SECRET"`
	ExportS3URL    string `envconfig:"EXPORT_S3_URL"`
	ExportS3Region string `envconfig:"EXPORT_S3_REGION"`
	ExportS3Bucket string `envconfig:"EXPORT_S3_BUCKET"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ExportArchiveEnabled reports whether generated exports are copied to S3.
func (c *Config) ExportArchiveEnabled() bool {
	return c.ExportS3Bucket != ""
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
