package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Session   SessionConfig
	Redis     RedisConfig
	Log       LogConfig
}

type ServerConfig struct {
	Address string
	// BaseURL is prepended to every route, e.g. "/quack". Empty mounts the
	// routes at the root.
	BaseURL string `mapstructure:"baseURL"`
	// AllowedOrigins is handed to the websocket accept options. Empty means
	// same-origin only.
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type TransportConfig struct {
	// ReadTimeout bounds a single blocking read. Zero disables the bound,
	// which is the right default for long-idle chat connections.
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
	SendBuffer  int           `mapstructure:"sendBuffer"`
}

type SessionConfig struct {
	// Backend selects the session store: "memory" or "redis".
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr string
	DB   int
}

type LogConfig struct {
	Level string
}
