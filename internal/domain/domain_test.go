package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestEphemeralKeyPairExpiryBoundary(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pair, err := NewEphemeralKeyPair(now, time.Hour)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}

	if pair.Expired(now) {
		t.Fatalf("a fresh pair must not be expired")
	}
	if pair.Expired(pair.ExpiresAt.Add(-time.Nanosecond)) {
		t.Fatalf("just before the boundary the pair is still valid")
	}
	if !pair.Expired(pair.ExpiresAt) {
		t.Fatalf("a pair expiring exactly now is already expired")
	}
	if !pair.Expired(pair.ExpiresAt.Add(time.Second)) {
		t.Fatalf("past the boundary the pair is expired")
	}
}

func TestNewEphemeralKeyPairRejectsNonPositiveTTL(t *testing.T) {
	t.Parallel()
	if _, err := NewEphemeralKeyPair(time.Now(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestKeylessAccountSignDiesWithThePair(t *testing.T) {
	t.Parallel()
	now := time.Now()
	pair, err := NewEphemeralKeyPair(now, time.Hour)
	if err != nil {
		t.Fatalf("new pair: %v", err)
	}
	account := KeylessAccount{Address: "0xabc", Ephemeral: pair}

	if _, err := account.Sign([]byte("message"), now); err != nil {
		t.Fatalf("sign within the window failed: %v", err)
	}
	if !account.SigningCapable(now) {
		t.Fatalf("expected signing capability within the window")
	}

	after := pair.ExpiresAt
	if _, err := account.Sign([]byte("message"), after); !errors.Is(err, ErrAuthenticationExpired) {
		t.Fatalf("expected ErrAuthenticationExpired at the boundary, got %v", err)
	}
	if account.SigningCapable(after) {
		t.Fatalf("capability must be gone at the boundary")
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"Mario's Pizza", "mario-s-pizza"},
		{"  Ana Paints  ", "ana-paints"},
		{"Café — Crème!", "caf-cr-me"},
		{"already-slugged", "already-slugged"},
		{"123 Go", "123-go"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestProfileValidateEnforcesTaggedUnion(t *testing.T) {
	t.Parallel()
	base := Profile{
		Slug:          "marios-pizza",
		WalletAddress: "0xabc",
		Name:          "Mario's Pizza",
	}

	restaurant := base
	restaurant.Category = CategoryRestaurant
	restaurant.Restaurant = &RestaurantDetails{City: "Brooklyn"}
	if err := restaurant.Validate(); err != nil {
		t.Fatalf("valid restaurant rejected: %v", err)
	}

	bothSet := restaurant
	bothSet.Creator = &CreatorDetails{}
	if err := bothSet.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("restaurant with creator details must be invalid, got %v", err)
	}

	missingDetails := base
	missingDetails.Category = CategoryCreator
	if err := missingDetails.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("creator without details must be invalid, got %v", err)
	}

	noName := restaurant
	noName.Name = "  "
	if err := noName.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name must be invalid, got %v", err)
	}
}

func TestParseProfileCategory(t *testing.T) {
	t.Parallel()
	if got, err := ParseProfileCategory(" Restaurant "); err != nil || got != CategoryRestaurant {
		t.Fatalf("expected restaurant, got %v %v", got, err)
	}
	if _, err := ParseProfileCategory("bakery"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown category must be rejected, got %v", err)
	}
}

func TestTipValidate(t *testing.T) {
	t.Parallel()
	valid := Tip{
		TipperAddress:   "0xabc",
		AmountOctas:     100,
		TransactionHash: "0xfeed",
		Message:         "thanks",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid tip rejected: %v", err)
	}

	noHash := valid
	noHash.TransactionHash = " "
	if err := noHash.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("a tip without a transaction hash must be invalid, got %v", err)
	}

	longMessage := valid
	longMessage.Message = strings.Repeat("x", MaxTipMessageLength+1)
	if err := longMessage.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("over-length message must be invalid, got %v", err)
	}

	atLimit := valid
	atLimit.Message = strings.Repeat("x", MaxTipMessageLength)
	if err := atLimit.Validate(); err != nil {
		t.Fatalf("message at the limit is valid, got %v", err)
	}
}

func TestDenominationPolicy(t *testing.T) {
	t.Parallel()
	policy := DenominationPolicy{OctasPerCent: 100_000}

	octas, err := policy.CentsToOctas(500)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if octas != 50_000_000 {
		t.Fatalf("unexpected octas %d", octas)
	}
	if cents := policy.OctasToCents(octas); cents != 500 {
		t.Fatalf("round trip failed, got %d cents", cents)
	}

	if _, err := policy.CentsToOctas(0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero amount must be rejected, got %v", err)
	}
	if _, err := policy.CentsToOctas(math.MaxInt64/2 + 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("overflowing amount must be rejected, got %v", err)
	}
	if _, err := (DenominationPolicy{}).CentsToOctas(100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unconfigured policy must be rejected, got %v", err)
	}
}
