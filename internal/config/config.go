package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port                string
	DBPath              string
	AllowedOrigins      string
	DisableRegistration bool
	RunMigrations       bool
	EnableWorkers       bool

	LLMProvider string
	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string
	LLMTimeout  time.Duration

	SchedulerInterval time.Duration
	Location          *time.Location
	MorningHourStart  int
	MorningHourEnd    int

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
}

// Load reads .env (if present) and the process environment.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Printf("[cfg] No .env file found or error loading: %v", err)
	}

	loc, err := time.LoadLocation(get("TIMEZONE", "UTC"))
	if err != nil {
		log.Printf("[cfg] Unknown TIMEZONE, falling back to UTC: %v", err)
		loc = time.UTC
	}

	cfg := AppConfig{
		Port:                get("PORT", "3000"),
		DBPath:              get("DB_PATH", "./data/coach.db"),
		AllowedOrigins:      normalizeOrigins(os.Getenv("ALLOWED_ORIGINS")),
		DisableRegistration: strings.ToLower(get("DISABLE_REGISTRATION", "false")) == "true",
		RunMigrations:       get("RUN_MIGRATIONS", "false") == "true",
		EnableWorkers:       get("ENABLE_WORKERS", "true") == "true",

		LLMProvider: strings.ToLower(get("LLM_PROVIDER", "openai")),
		LLMEndpoint: get("LLM_ENDPOINT", ""),
		LLMAPIKey:   get("LLM_API_KEY", ""),
		LLMModel:    get("LLM_MODEL", ""),
		LLMTimeout:  time.Duration(getInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,

		SchedulerInterval: time.Duration(getInt("SCHEDULER_INTERVAL_MINUTES", 5)) * time.Minute,
		Location:          loc,
		MorningHourStart:  getInt("MORNING_HOUR_START", 8),
		MorningHourEnd:    getInt("MORNING_HOUR_END", 11),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    os.Getenv("VAPID_SUBJECT"),
	}
	log.Printf("[cfg] port=%s db=%s provider=%s model=%s workers=%v interval=%s tz=%s",
		cfg.Port, cfg.DBPath, cfg.LLMProvider, cfg.LLMModel, cfg.EnableWorkers, cfg.SchedulerInterval, cfg.Location)
	return cfg
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// normalizeOrigins trims whitespace around comma-separated entries.
func normalizeOrigins(raw string) string {
	origins := strings.TrimSpace(raw)
	if origins == "" {
		log.Println("WARNING: Using default ALLOWED_ORIGINS. Set ALLOWED_ORIGINS env var for production.")
		return "http://localhost:80,http://localhost:5173"
	}
	if origins == "*" {
		return origins
	}
	parts := strings.Split(origins, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ",")
}
