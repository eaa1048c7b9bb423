package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tip is written only after the chain confirmed the submission. The
// transaction hash is the join key between the off-chain row and the
// on-chain fact; a row without one must never exist.
type Tip struct {
	TipID           uuid.UUID
	ProfileID       uuid.UUID
	ProfileSlug     string
	TipperAddress   string
	AmountOctas     int64
	Message         string
	TransactionHash string
	CreatedAt       time.Time
}

const MaxTipMessageLength = 280

func (t Tip) Validate() error {
	if t.AmountOctas <= 0 {
		return fmt.Errorf("%w: tip amount must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(t.TransactionHash) == "" {
		return fmt.Errorf("%w: tip requires a confirmed transaction hash", ErrInvalidInput)
	}
	if strings.TrimSpace(t.TipperAddress) == "" {
		return fmt.Errorf("%w: tipper address is required", ErrInvalidInput)
	}
	if len(t.Message) > MaxTipMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxTipMessageLength)
	}
	return nil
}
