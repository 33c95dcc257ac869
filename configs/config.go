package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type RouteLimit struct {
	Limit  int
	Window time.Duration
}

type Config struct {
	Environment string
	ServerPort  string
	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	CacheTTL        time.Duration
	SubscriptionTTL time.Duration
	EnableWebSocket bool

	GeoIPBaseURL   string
	GeocodeBaseURL string
	GeoTimeout     time.Duration

	LandingPageURL   string
	ExpiredPageURL   string
	DiagnosisPathFmt string
	ShortCodeLength  int
	PasswordResetTTL time.Duration

	LoginLimit         RouteLimit
	PasswordResetLimit RouteLimit
	AccessLimit        RouteLimit
	CTAClickLimit      RouteLimit
	LocationLimit      RouteLimit
}

var AppConfig *Config

func LoadConfig() error {

	godotenv.Load()

	AppConfig = &Config{
		Environment: getEnv("APP_ENV", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "root:password@tcp(localhost:3306)/clinic_tracker?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTTTL:    parseDuration(getEnv("JWT_TTL", "24h"), 24*time.Hour),

		CacheTTL:        parseDuration(getEnv("CACHE_TTL", "5m"), 5*time.Minute),
		SubscriptionTTL: parseDuration(getEnv("SUBSCRIPTION_CACHE_TTL", "1m"), time.Minute),
		EnableWebSocket: parseBool(getEnv("ENABLE_WEBSOCKET", "true")),

		GeoIPBaseURL:   getEnv("GEOIP_BASE_URL", "http://ip-api.com/json"),
		GeocodeBaseURL: getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org/reverse"),
		GeoTimeout:     parseDuration(getEnv("GEO_TIMEOUT", "2s"), 2*time.Second),

		LandingPageURL:   getEnv("LANDING_PAGE_URL", "/"),
		ExpiredPageURL:   getEnv("EXPIRED_PAGE_URL", "/expired"),
		DiagnosisPathFmt: getEnv("DIAGNOSIS_PATH_FORMAT", "/diagnosis/%s?channel=%s"),
		ShortCodeLength:  parseInt(getEnv("SHORT_CODE_LENGTH", "8"), 8),
		PasswordResetTTL: parseDuration(getEnv("PASSWORD_RESET_TTL", "1h"), time.Hour),

		LoginLimit:         RouteLimit{Limit: parseInt(getEnv("LOGIN_LIMIT", "10"), 10), Window: parseDuration(getEnv("LOGIN_WINDOW", "15m"), 15*time.Minute)},
		PasswordResetLimit: RouteLimit{Limit: parseInt(getEnv("PASSWORD_RESET_LIMIT", "5"), 5), Window: parseDuration(getEnv("PASSWORD_RESET_WINDOW", "15m"), 15*time.Minute)},
		AccessLimit:        RouteLimit{Limit: parseInt(getEnv("ACCESS_LIMIT", "60"), 60), Window: parseDuration(getEnv("ACCESS_WINDOW", "1m"), time.Minute)},
		CTAClickLimit:      RouteLimit{Limit: parseInt(getEnv("CTA_LIMIT", "30"), 30), Window: parseDuration(getEnv("CTA_WINDOW", "1m"), time.Minute)},
		LocationLimit:      RouteLimit{Limit: parseInt(getEnv("LOCATION_LIMIT", "20"), 20), Window: parseDuration(getEnv("LOCATION_WINDOW", "1m"), time.Minute)},
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, fallback int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func init() {
	if err := LoadConfig(); err != nil {
		log.Fatal("Failed to load config:", err)
	}
}
