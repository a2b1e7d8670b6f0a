// Package config builds explicit configuration objects from the environment
// so main stays lean and nothing in the codebase reaches for ambient state.
// Keys are loaded once at startup and handed to the codec and orchestrator.
package config

import (
	"fmt"
	"os"
	"time"
)

// StateValidity bounds how long an in-flight payment state stays usable.
// After this window the signed state is rejected regardless of hash.
const StateValidity = 5 * time.Minute

// Server captures configuration shared by both processes.
type Server struct {
	Addr        string
	PostgresDSN string
	RedisURL    string
	KafkaSeeds  string

	// PEM-encoded RSA material. PrivateKeyPEM identifies this process to
	// counter-parties; CentralPublicKeyPEM verifies envelopes signed by the
	// central API (bank process only).
	PrivateKeyPEM       string
	CentralPublicKeyPEM string

	// MerchantPublicKeyPEM verifies initiation envelopes signed by the
	// merchant (central process only).
	MerchantPublicKeyPEM string

	// DirectoryBaseURL points a bank process at the central directory.
	DirectoryBaseURL string

	// Bank identity as registered in the directory (bank process only).
	BankName      string
	BankSwiftCode string
	BankCountry   string

	JWTSigningKey string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:             envOr("PAYGATE_ADDR", ":8080"),
		PostgresDSN:      os.Getenv("PAYGATE_POSTGRES_DSN"),
		RedisURL:         os.Getenv("PAYGATE_REDIS_URL"),
		KafkaSeeds:       os.Getenv("PAYGATE_KAFKA_SEEDS"),
		DirectoryBaseURL: os.Getenv("PAYGATE_DIRECTORY_URL"),
		BankName:         os.Getenv("PAYGATE_BANK_NAME"),
		BankSwiftCode:    os.Getenv("PAYGATE_BANK_SWIFT"),
		BankCountry:      os.Getenv("PAYGATE_BANK_COUNTRY"),
		JWTSigningKey:    envOr("PAYGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
	}

	var err error
	if cfg.PrivateKeyPEM, err = pemFromEnv("PAYGATE_PRIVATE_KEY"); err != nil {
		return Server{}, err
	}
	if cfg.CentralPublicKeyPEM, err = pemFromEnv("PAYGATE_CENTRAL_PUBLIC_KEY"); err != nil {
		return Server{}, err
	}
	if cfg.MerchantPublicKeyPEM, err = pemFromEnv("PAYGATE_MERCHANT_PUBLIC_KEY"); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// pemFromEnv reads PEM material either inline from NAME or from the file
// named by NAME_FILE. Missing material is not an error here; components that
// require a key fail loudly when constructed without one.
func pemFromEnv(name string) (string, error) {
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	path := os.Getenv(name + "_FILE")
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name+"_FILE", err)
	}
	return string(b), nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
