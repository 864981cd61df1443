package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bookinglabs/booking-pipeline/pkg/logger"
)

func MustInit(configPath string) {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Warn("No .env file loaded", "error", err)
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}

// LeaseDuration returns the lock lease window for GetAndLock.
func LeaseDuration() time.Duration {
	seconds := viper.GetInt("folder.lease_seconds")
	if seconds == 0 {
		seconds = 30
	}

	return time.Duration(seconds) * time.Second
}

// DispatchPollInterval returns how often the dispatch worker polls.
func DispatchPollInterval() time.Duration {
	seconds := viper.GetInt("folder.dispatch.poll_interval_seconds")
	if seconds == 0 {
		seconds = 1
	}

	return time.Duration(seconds) * time.Second
}

// DispatchBatchSize returns how many messages one dispatch cycle leases.
func DispatchBatchSize() int {
	batchSize := viper.GetInt("folder.dispatch.batch_size")
	if batchSize == 0 {
		batchSize = 4
	}

	return batchSize
}

// PurgeInterval returns how often the purge worker runs.
func PurgeInterval() time.Duration {
	seconds := viper.GetInt("folder.purge.interval_seconds")
	if seconds == 0 {
		seconds = 10
	}

	return time.Duration(seconds) * time.Second
}

// PurgeMinAge returns the retention window for completed messages.
func PurgeMinAge() time.Duration {
	minutes := viper.GetInt("folder.purge.min_age_minutes")
	if minutes == 0 {
		minutes = 10
	}

	return time.Duration(minutes) * time.Minute
}
