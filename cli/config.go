package cli

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds the environment defaults of the command line flags.
type Config struct {
	WSURL     string `envconfig:"CHAT_WS_URL" default:"ws://localhost:3000/ws"`
	GRPCAddr  string `envconfig:"CHAT_GRPC_ADDR" default:"localhost:50051"`
	Transport string `envconfig:"CHAT_TRANSPORT" default:"ws"`
	TokenFile string `envconfig:"CHAT_TOKEN_FILE"`
	// CHAT_COLOURS enables colorized tables
	Colours  bool   `envconfig:"CHAT_COLOURS" default:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"WARN"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
