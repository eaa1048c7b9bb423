package application

import (
	"time"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

// Config carries the application-layer knobs. Chain and provider endpoints
// live in the respective adapters; this layer only owns flow policy.
type Config struct {
	DefaultProvider     string
	ContractAddress     string
	AllowedRedirectURIs []string
	EphemeralKeyTTL     time.Duration
	IdempotencyTTL      time.Duration
	SubmitMaxAttempts   int
	SubmitRetryBackoff  time.Duration
	OctasPerCent        int64
}

type Service struct {
	cfg         Config
	profiles    ports.ProfileRepository
	tips        ports.TipRepository
	outbox      ports.OutboxRepository
	idempotency ports.IdempotencyRepository
	sessions    ports.AuthSessionStore
	verifier    ports.IdentityVerifier
	deriver     ports.AccountDeriver
	chain       ports.ChainClient
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Profiles    ports.ProfileRepository
	Tips        ports.TipRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
	Sessions    ports.AuthSessionStore
	Verifier    ports.IdentityVerifier
	Deriver     ports.AccountDeriver
	Chain       ports.ChainClient
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = "google"
	}
	if cfg.EphemeralKeyTTL <= 0 {
		cfg.EphemeralKeyTTL = 2 * time.Hour
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.SubmitMaxAttempts <= 0 {
		cfg.SubmitMaxAttempts = 3
	}
	if cfg.SubmitRetryBackoff <= 0 {
		cfg.SubmitRetryBackoff = 500 * time.Millisecond
	}
	if cfg.OctasPerCent <= 0 {
		cfg.OctasPerCent = 100_000
	}
	return &Service{
		cfg:         cfg,
		profiles:    deps.Profiles,
		tips:        deps.Tips,
		outbox:      deps.Outbox,
		idempotency: deps.Idempotency,
		sessions:    deps.Sessions,
		verifier:    deps.Verifier,
		deriver:     deps.Deriver,
		chain:       deps.Chain,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
