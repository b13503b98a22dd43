package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded once at startup and
// passed down explicitly. No package keeps its own copy of the environment.
type Config struct {
	BotToken string

	MongoURI string
	MongoDB  string

	RedisAddr string

	// AdminGroupID is the chat the staff order cards are posted to.
	// Zero means no staff broadcast destination is configured.
	AdminGroupID int64

	// AdminIDs is the staff allow-list. Empty means every caller is
	// treated as authorized (documented fail-open default).
	AdminIDs map[int64]bool

	// HTTP admin API.
	Port          string
	JWTSecret     []byte
	AdminUser     string
	AdminPassHash string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	cfg := &Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       os.Getenv("MONGO_DB"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		Port:          os.Getenv("PORT"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		AdminUser:     os.Getenv("ADMIN_USER"),
		AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),
		AdminIDs:      ParseAdminIDs(os.Getenv("ADMIN_IDS")),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = "mongodb://localhost:27017"
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "edadb"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.Port == "" {
		cfg.Port = ":8080"
	} else if cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}

	if raw := strings.TrimSpace(os.Getenv("ADMIN_GROUP_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Printf("ADMIN_GROUP_ID %q is not numeric; staff broadcast disabled", raw)
		} else {
			cfg.AdminGroupID = id
		}
	}

	return cfg, nil
}

// ParseAdminIDs parses a comma-separated identity list, skipping junk entries.
func ParseAdminIDs(raw string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(part, "+"), 10, 64)
		if err != nil {
			continue
		}
		ids[id] = true
	}
	return ids
}

// IsAdmin reports whether userID may use staff commands. An empty
// allow-list authorizes everyone.
func (c *Config) IsAdmin(userID int64) bool {
	if len(c.AdminIDs) == 0 {
		return true
	}
	return c.AdminIDs[userID]
}
