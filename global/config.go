package global

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the gateway process reads from the environment.
// Empty RedisAddr / NatsServers disable the corresponding integration.
type Config struct {
	Addr      string // HTTP listen address for the ws endpoint
	JWTSecret string

	DBDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsServers []string
	NatsName    string

	SendQueueSize int
	PingInterval  time.Duration
	WriteTimeout  time.Duration
	ReadTimeout   time.Duration
}

func Load() Config {
	return Config{
		Addr:      GetEnv("GATEWAY_ADDR", ":8080"),
		JWTSecret: GetEnv("JWT_SECRET", "dev-secret-change-me"),

		DBDSN: GetEnv("DB_DSN", "file:domu.db?cache=shared"),

		RedisAddr:     GetEnv("REDIS_ADDR", ""),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetEnvInt("REDIS_DB", 0),

		NatsServers: splitList(GetEnv("NATS_SERVERS", "")),
		NatsName:    GetEnv("NATS_NAME", "domu-gateway"),

		SendQueueSize: GetEnvInt("SEND_QUEUE_SIZE", 256),
		PingInterval:  time.Duration(GetEnvInt("PING_INTERVAL_SEC", 30)) * time.Second,
		WriteTimeout:  time.Duration(GetEnvInt("WRITE_TIMEOUT_SEC", 5)) * time.Second,
		ReadTimeout:   time.Duration(GetEnvInt("READ_TIMEOUT_SEC", 60)) * time.Second,
	}
}

func GetEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
