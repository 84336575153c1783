package internal

import (
	"fmt"
	"time"
)

const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	HTTPPort             int           `env:"HTTP_PORT,default=3000"`
	GRPCPort             int           `env:"GRPC_PORT,default=50051"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=500ms"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	StoreDriver          string        `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,default=data/badger"`
	SQLitePath           string        `env:"SQLITE_PATH,default=data/livechat.db"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,default=data/bluge"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	DefaultSender        string        `env:"DEFAULT_SENDER,default=Anonymous"`
	EnableModeration     bool          `env:"ENABLE_MODERATION,default=true"`
	DebugEnabled         bool          `env:"DEBUG_ENABLED,default=false"`
}

// Validate reports settings that would only fail later at runtime.
func (c Config) Validate() error {
	if c.StoreDriver != StoreBadger && c.StoreDriver != StoreSQLite {
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreBadger, StoreSQLite, c.StoreDriver)
	}
	if c.BufferSize <= 0 || c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("BUFFER_SIZE and CONNECTION_BUFFER_SIZE must be positive")
	}
	if c.LimitMessages != nil && *c.LimitMessages < 0 {
		return fmt.Errorf("LIMIT_MESSAGES must not be negative, got %d", *c.LimitMessages)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
