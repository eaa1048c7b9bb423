package postgres

import (
	"strings"

	"gorm.io/gorm"

	"github.com/Blockchain-Oracle/aptoTip-sub000/internal/ports"
)

type Repositories struct {
	Profiles    ports.ProfileRepository
	Tips        ports.TipRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Profiles:    &profileRepository{db: db},
		Tips:        &tipRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
