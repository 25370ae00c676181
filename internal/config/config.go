package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	BackendURL     string
	BackendNonce   string
	BackendTimeout time.Duration

	OTPTimerDuration int
	TestMode         bool
	RequireOTP       bool
	RequireToken     bool

	TokenCurrency      string
	UPIPayeeAddress    string
	UPIPayeeName       string
	GatewayFallbackKey string

	ViewportWidth int
	UserAgent     string

	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   string
	KafkaTopic     string
	NatsURL        string
	JaegerEndpoint string
	LogLevel       string
}

// PlaceholderPayeeAddress is the UPI payee used when UPI_PAYEE_ADDRESS is unset.
const PlaceholderPayeeAddress = "merchant@upi"

func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	return &Config{
		Port:               getenv("PORT", "8085"),
		BackendURL:         getenv("BACKEND_URL", "http://localhost:8080/wp-admin/admin-ajax.php"),
		BackendNonce:       os.Getenv("BACKEND_NONCE"),
		BackendTimeout:     getDuration("BACKEND_TIMEOUT", 15*time.Second),
		OTPTimerDuration:   getInt("OTP_TIMER_DURATION", 30),
		TestMode:           getBool("TEST_MODE", false),
		RequireOTP:         getBool("REQUIRE_OTP", true),
		RequireToken:       getBool("REQUIRE_TOKEN", true),
		TokenCurrency:      getenv("TOKEN_CURRENCY", "INR"),
		UPIPayeeAddress:    getenv("UPI_PAYEE_ADDRESS", PlaceholderPayeeAddress),
		UPIPayeeName:       getenv("UPI_PAYEE_NAME", "COD Verifier"),
		GatewayFallbackKey: getenv("GATEWAY_FALLBACK_KEY", "rzp_test_key"),
		ViewportWidth:      getInt("DEVICE_VIEWPORT_WIDTH", 1280),
		UserAgent:          os.Getenv("DEVICE_USER_AGENT"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:         getenv("KAFKA_TOPIC", "cod.verification.changed"),
		NatsURL:            os.Getenv("NATS_URL"),
		JaegerEndpoint:     os.Getenv("JAEGER_ENDPOINT"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getInt treats zero, negative and unparsable values as unset.
func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
