package wompi

import (
	"fmt"
	"strings"

	"github.com/causabona/donare/internal/config"
)

// Checkout widget script, identical for sandbox and production. The
// environment is carried by the public key prefix (pub_test_ / pub_prod_).
const WidgetURL = "https://checkout.wompi.co/widget.js"

const (
	baseURLProd    = "https://production.wompi.co/v1"
	baseURLSandbox = "https://sandbox.wompi.co/v1"
)

// Environment bundles the resolved gateway credentials and base URL for
// one of the two Wompi environments. It is built once from config at
// process start; nothing reads gateway settings from the environment at
// call sites.
type Environment struct {
	Name            config.WompiEnv
	BaseURL         string
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	EventsSecret    string
}

func ResolveEnvironment(cfg config.WompiConfig) Environment {
	base := baseURLSandbox
	if cfg.Env == config.WompiEnvProd {
		base = baseURLProd
	}
	return Environment{
		Name:            cfg.Env,
		BaseURL:         base,
		PublicKey:       cfg.PublicKey,
		PrivateKey:      cfg.PrivateKey,
		IntegritySecret: cfg.IntegritySecret,
		EventsSecret:    cfg.EventsSecret,
	}
}

func (e Environment) IsProduction() bool {
	return e.Name == config.WompiEnvProd
}

func (e Environment) integrityPrefix() string {
	if e.IsProduction() {
		return "prod_integrity_"
	}
	return "test_integrity_"
}

// ValidateIntegritySecret checks the secret is present and matches the
// selected environment. A sandbox secret against production keys produces
// hashes the gateway rejects with an opaque 403, so fail with an operator
// message instead.
func (e Environment) ValidateIntegritySecret() error {
	secret := strings.TrimSpace(e.IntegritySecret)
	if secret == "" {
		return fmt.Errorf("%w: set WOMPI_INTEGRITY_SECRET_%s", ErrMissingSecret, e.envSuffix())
	}
	if !strings.HasPrefix(secret, e.integrityPrefix()) {
		return fmt.Errorf("%w: the %s integrity secret must start with %q",
			ErrSecretEnvMismatch, e.Name, e.integrityPrefix())
	}
	return nil
}

func (e Environment) envSuffix() string {
	if e.IsProduction() {
		return "PROD"
	}
	return "SANDBOX"
}
