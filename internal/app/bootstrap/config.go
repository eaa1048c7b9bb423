package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the tipping service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	OIDCGoogleIssuerURL    string
	OIDCGoogleClientID     string
	OIDCGoogleClientSecret string
	OIDCGoogleScopes       []string
	OIDCHTTPTimeout        time.Duration
	AllowedRedirectURIs    []string

	ChainNodeURL             string
	ContractAddress          string
	SponsorPrivateKeyHex     string
	MaxGasAmount             int64
	GasUnitPrice             int64
	TransactionTTL           time.Duration
	ConfirmationTimeout      time.Duration
	ConfirmationPollInterval time.Duration

	EphemeralKeyTTL    time.Duration
	IdempotencyTTL     time.Duration
	OctasPerCent       int64
	SubmitMaxAttempts  int
	SubmitRetryBackoff time.Duration

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	OIDC struct {
		Google struct {
			IssuerURL    string   `yaml:"issuer_url"`
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			Scopes       []string `yaml:"scopes"`
		} `yaml:"google"`
		AllowedRedirectURIs []string `yaml:"allowed_redirect_uris"`
	} `yaml:"oidc"`
	Chain struct {
		NodeURL          string `yaml:"node_url"`
		ContractAddress  string `yaml:"contract_address"`
		SponsorKeyHex    string `yaml:"sponsor_private_key"`
		OctasPerCent     int64  `yaml:"octas_per_cent"`
		MaxGasAmount     int64  `yaml:"max_gas_amount"`
		GasUnitPrice     int64  `yaml:"gas_unit_price"`
		ConfirmTimeoutMS int    `yaml:"confirmation_timeout_ms"`
	} `yaml:"chain"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                "aptotip",
		HTTPPort:                 8080,
		GRPCPort:                 9090,
		OIDCGoogleIssuerURL:      "https://accounts.google.com",
		OIDCGoogleScopes:         []string{"openid", "email", "profile"},
		OIDCHTTPTimeout:          8 * time.Second,
		MaxGasAmount:             20000,
		GasUnitPrice:             100,
		TransactionTTL:           2 * time.Minute,
		ConfirmationTimeout:      30 * time.Second,
		ConfirmationPollInterval: 500 * time.Millisecond,
		EphemeralKeyTTL:          2 * time.Hour,
		IdempotencyTTL:           7 * 24 * time.Hour,
		OctasPerCent:             100_000,
		SubmitMaxAttempts:        3,
		SubmitRetryBackoff:       500 * time.Millisecond,
		MaxDBConns:               20,
		OutboxPollInterval:       2 * time.Second,
		OutboxBatchSize:          100,
		OutboxClaimTTL:           30 * time.Second,
		OutboxMaxRetries:         5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.OIDC.Google.IssuerURL != "" {
			cfg.OIDCGoogleIssuerURL = f.OIDC.Google.IssuerURL
		}
		if f.OIDC.Google.ClientID != "" {
			cfg.OIDCGoogleClientID = f.OIDC.Google.ClientID
		}
		if f.OIDC.Google.ClientSecret != "" {
			cfg.OIDCGoogleClientSecret = f.OIDC.Google.ClientSecret
		}
		if len(f.OIDC.Google.Scopes) > 0 {
			cfg.OIDCGoogleScopes = f.OIDC.Google.Scopes
		}
		if len(f.OIDC.AllowedRedirectURIs) > 0 {
			cfg.AllowedRedirectURIs = f.OIDC.AllowedRedirectURIs
		}
		if f.Chain.NodeURL != "" {
			cfg.ChainNodeURL = f.Chain.NodeURL
		}
		if f.Chain.ContractAddress != "" {
			cfg.ContractAddress = f.Chain.ContractAddress
		}
		if f.Chain.SponsorKeyHex != "" {
			cfg.SponsorPrivateKeyHex = f.Chain.SponsorKeyHex
		}
		if f.Chain.OctasPerCent > 0 {
			cfg.OctasPerCent = f.Chain.OctasPerCent
		}
		if f.Chain.MaxGasAmount > 0 {
			cfg.MaxGasAmount = f.Chain.MaxGasAmount
		}
		if f.Chain.GasUnitPrice > 0 {
			cfg.GasUnitPrice = f.Chain.GasUnitPrice
		}
		if f.Chain.ConfirmTimeoutMS > 0 {
			cfg.ConfirmationTimeout = time.Duration(f.Chain.ConfirmTimeoutMS) * time.Millisecond
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.OIDCGoogleIssuerURL = envOrDefault("OIDC_GOOGLE_ISSUER_URL", cfg.OIDCGoogleIssuerURL)
	cfg.OIDCGoogleClientID = envOrDefault("OIDC_GOOGLE_CLIENT_ID", cfg.OIDCGoogleClientID)
	cfg.OIDCGoogleClientSecret = envOrDefault("OIDC_GOOGLE_CLIENT_SECRET", cfg.OIDCGoogleClientSecret)
	cfg.OIDCGoogleScopes = envCSV("OIDC_GOOGLE_SCOPES", cfg.OIDCGoogleScopes)
	cfg.AllowedRedirectURIs = envCSV("ALLOWED_REDIRECT_URIS", cfg.AllowedRedirectURIs)
	cfg.ChainNodeURL = envOrDefault("CHAIN_NODE_URL", cfg.ChainNodeURL)
	cfg.ContractAddress = envOrDefault("CONTRACT_ADDRESS", cfg.ContractAddress)
	cfg.SponsorPrivateKeyHex = envOrDefault("SPONSOR_PRIVATE_KEY", cfg.SponsorPrivateKeyHex)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OctasPerCent = int64(envInt("OCTAS_PER_CENT", int(cfg.OctasPerCent)))
	cfg.SubmitMaxAttempts = envInt("SUBMIT_MAX_ATTEMPTS", cfg.SubmitMaxAttempts)

	cfg.OIDCHTTPTimeout = time.Duration(envInt("OIDC_HTTP_TIMEOUT_SECONDS", int(cfg.OIDCHTTPTimeout.Seconds()))) * time.Second
	cfg.EphemeralKeyTTL = time.Duration(envInt("EPHEMERAL_KEY_TTL_MINUTES", int(cfg.EphemeralKeyTTL.Minutes()))) * time.Minute
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.SubmitRetryBackoff = time.Duration(envInt("SUBMIT_RETRY_BACKOFF_MS", int(cfg.SubmitRetryBackoff.Milliseconds()))) * time.Millisecond
	cfg.TransactionTTL = time.Duration(envInt("TRANSACTION_TTL_SECONDS", int(cfg.TransactionTTL.Seconds()))) * time.Second
	cfg.ConfirmationTimeout = time.Duration(envInt("CONFIRMATION_TIMEOUT_SECONDS", int(cfg.ConfirmationTimeout.Seconds()))) * time.Second
	cfg.ConfirmationPollInterval = time.Duration(envInt("CONFIRMATION_POLL_MS", int(cfg.ConfirmationPollInterval.Milliseconds()))) * time.Millisecond
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.ChainNodeURL == "" {
		return Config{}, fmt.Errorf("missing CHAIN_NODE_URL")
	}
	if cfg.ContractAddress == "" {
		return Config{}, fmt.Errorf("missing CONTRACT_ADDRESS")
	}
	if cfg.SponsorPrivateKeyHex == "" {
		return Config{}, fmt.Errorf("missing SPONSOR_PRIVATE_KEY")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
