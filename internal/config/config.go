package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// WompiEnv selects the gateway environment. The environment decides which
// key set and API base URL every collaborator uses; it is resolved once at
// process start and never re-read from the environment afterwards.
type WompiEnv string

const (
	WompiEnvSandbox WompiEnv = "sandbox"
	WompiEnvProd    WompiEnv = "prod"
)

type WompiConfig struct {
	Env             WompiEnv
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	EventsSecret    string
}

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	// AllowDemoMode swaps the Postgres backend for an in-memory database
	// when DATABASE_URL is unset. Must stay off in production.
	AllowDemoMode bool

	CronSecret        string
	MinDonationAmount int64
	DefaultCurrency   string
	ChargeInterval    time.Duration

	Wompi WompiConfig
}

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("MIN_DONATION_AMOUNT", 10000)
	v.SetDefault("DEFAULT_CURRENCY", "COP")
	v.SetDefault("CHARGE_INTERVAL", "24h")

	interval, err := time.ParseDuration(v.GetString("CHARGE_INTERVAL"))
	if err != nil {
		interval = 24 * time.Hour
	}

	env := resolveWompiEnv(v)

	cfg := Config{
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		DatabaseURL:       strings.TrimSpace(v.GetString("DATABASE_URL")),
		AllowDemoMode:     v.GetBool("ALLOW_DEMO_MODE"),
		CronSecret:        strings.TrimSpace(v.GetString("CRON_SECRET")),
		MinDonationAmount: v.GetInt64("MIN_DONATION_AMOUNT"),
		DefaultCurrency:   strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		ChargeInterval:    interval,
		Wompi: WompiConfig{
			Env:             env,
			PublicKey:       pickEnv(v, env, "WOMPI_PUBLIC_KEY"),
			PrivateKey:      pickEnv(v, env, "WOMPI_PRIVATE_KEY"),
			IntegritySecret: pickEnv(v, env, "WOMPI_INTEGRITY_SECRET"),
			EventsSecret:    pickEnv(v, env, "WOMPI_EVENTS_SECRET"),
		},
	}
	return cfg, nil
}

func resolveWompiEnv(v *viper.Viper) WompiEnv {
	switch strings.ToLower(strings.TrimSpace(v.GetString("WOMPI_ENV"))) {
	case "prod", "production":
		return WompiEnvProd
	case "sandbox", "test":
		return WompiEnvSandbox
	}
	if strings.TrimSpace(v.GetString("WOMPI_PRIVATE_KEY_PROD")) != "" {
		return WompiEnvProd
	}
	return WompiEnvSandbox
}

// pickEnv reads the environment-suffixed key first, falling back to the
// unsuffixed variant so a single-environment deployment needs one key set.
func pickEnv(v *viper.Viper, env WompiEnv, base string) string {
	suffix := "_SANDBOX"
	if env == WompiEnvProd {
		suffix = "_PROD"
	}
	if value := strings.TrimSpace(v.GetString(base + suffix)); value != "" {
		return value
	}
	return strings.TrimSpace(v.GetString(base))
}
