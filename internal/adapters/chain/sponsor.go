package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/sha3"
)

// SponsorAccount is the server-side fee payer. It is shared across every
// user submission, so its signing is serialized here; two concurrent
// transactions from the sponsor would race on its sequence number.
type SponsorAccount struct {
	mu         sync.Mutex
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	address    string
}

func NewSponsorAccount(privateKeyHex string) (*SponsorAccount, error) {
	seedHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode sponsor key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("sponsor key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{0x00})
	return &SponsorAccount{
		privateKey: priv,
		publicKey:  pub,
		address:    "0x" + hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func (s *SponsorAccount) Address() string { return s.address }

func (s *SponsorAccount) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(s.publicKey)
}

// Sign holds the sponsor lock for the duration of the signature so fee-payer
// signatures are produced in submission order.
func (s *SponsorAccount) Sign(message []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ed25519.Sign(s.privateKey, message)
}
