package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Service names accepted by `serve`.
const (
	ServiceAppointment  = "appointment"
	ServicePrescription = "prescription"
	ServicePatient      = "patient"
	ServicePhysician    = "physician"
	ServicePharmacist   = "pharmacist"
	ServiceGateway      = "gateway"
)

// Services lists every deployable service.
var Services = []string{
	ServiceAppointment,
	ServicePrescription,
	ServicePatient,
	ServicePhysician,
	ServicePharmacist,
	ServiceGateway,
}

type Config struct {
	Port                   string        `mapstructure:"PORT"`
	Env                    string        `mapstructure:"ENV"`
	LogLevel               string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32         `mapstructure:"DB_MIN_CONNS"`
	TokenSigningKey        string        `mapstructure:"TOKEN_SIGNING_KEY"`
	TokenTTL               time.Duration `mapstructure:"TOKEN_TTL"`
	TokenIssuer            string        `mapstructure:"TOKEN_ISSUER"`
	AppointmentServiceURL  string        `mapstructure:"APPOINTMENT_SERVICE_URL"`
	PrescriptionServiceURL string        `mapstructure:"PRESCRIPTION_SERVICE_URL"`
	PatientServiceURL      string        `mapstructure:"PATIENT_SERVICE_URL"`
	PhysicianServiceURL    string        `mapstructure:"PHYSICIAN_SERVICE_URL"`
	PharmacistServiceURL   string        `mapstructure:"PHARMACIST_SERVICE_URL"`
	RemoteTimeout          time.Duration `mapstructure:"REMOTE_TIMEOUT"`
	RequestTimeout         time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RedisURL               string        `mapstructure:"REDIS_URL"`
	IdempotencyTTL         time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	KafkaBrokers           []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic             string        `mapstructure:"KAFKA_TOPIC"`
	CORSOrigins            []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL", "30m")
	v.SetDefault("TOKEN_ISSUER", "medrec")
	v.SetDefault("REMOTE_TIMEOUT", "5s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("KAFKA_TOPIC", "medrec.prescriptions")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("TOKEN_SIGNING_KEY")
	v.BindEnv("TOKEN_TTL")
	v.BindEnv("TOKEN_ISSUER")
	v.BindEnv("APPOINTMENT_SERVICE_URL")
	v.BindEnv("PRESCRIPTION_SERVICE_URL")
	v.BindEnv("PATIENT_SERVICE_URL")
	v.BindEnv("PHYSICIAN_SERVICE_URL")
	v.BindEnv("PHARMACIST_SERVICE_URL")
	v.BindEnv("REMOTE_TIMEOUT")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("REDIS_URL")
	v.BindEnv("IDEMPOTENCY_TTL")
	v.BindEnv("KAFKA_BROKERS")
	v.BindEnv("KAFKA_TOPIC")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma separated lists arrive from the environment as one string.
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsService reports whether name is a deployable service.
func IsService(name string) bool {
	for _, s := range Services {
		if s == name {
			return true
		}
	}
	return false
}

// NeedsDatabase reports whether service owns tables.
func NeedsDatabase(service string) bool {
	return service != ServiceGateway
}

// Validate checks that the configuration is sufficient to run service. Each
// front service needs the base URL of every service it calls, and the gateway
// needs the front-service URLs it routes to.
func (c *Config) Validate(service string) error {
	if !IsService(service) {
		return fmt.Errorf("unknown service %q (want one of %s)", service, strings.Join(Services, ", "))
	}

	if NeedsDatabase(service) && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the %s service", service)
	}

	required := map[string]map[string]string{
		ServicePhysician: {
			"APPOINTMENT_SERVICE_URL":  c.AppointmentServiceURL,
			"PRESCRIPTION_SERVICE_URL": c.PrescriptionServiceURL,
			"PATIENT_SERVICE_URL":      c.PatientServiceURL,
		},
		ServicePharmacist: {
			"PRESCRIPTION_SERVICE_URL": c.PrescriptionServiceURL,
		},
		ServiceGateway: {
			"PATIENT_SERVICE_URL":    c.PatientServiceURL,
			"PHYSICIAN_SERVICE_URL":  c.PhysicianServiceURL,
			"PHARMACIST_SERVICE_URL": c.PharmacistServiceURL,
		},
	}
	for key, val := range required[service] {
		if val == "" {
			return fmt.Errorf("%s is required for the %s service", key, service)
		}
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}

	// In production every instance must verify the same tokens, so the key
	// cannot be generated per process.
	if c.IsProduction() && c.TokenSigningKey == "" && issuesTokens(service) {
		return fmt.Errorf("TOKEN_SIGNING_KEY is required in production")
	}
	if c.TokenSigningKey != "" {
		keyBytes, err := hex.DecodeString(c.TokenSigningKey)
		if err != nil {
			return fmt.Errorf("TOKEN_SIGNING_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) < 32 {
			return fmt.Errorf("TOKEN_SIGNING_KEY must be at least 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	return nil
}

func issuesTokens(service string) bool {
	switch service {
	case ServicePatient, ServicePhysician, ServicePharmacist:
		return true
	}
	return false
}
