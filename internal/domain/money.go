package domain

import "fmt"

// DenominationPolicy is the single configured conversion between the API's
// cent-denominated amounts and the ledger's smallest unit (octas). Call sites
// must never hard-code a rate; the observed product behavior was inconsistent
// and the rate is therefore an explicit deployment decision.
type DenominationPolicy struct {
	OctasPerCent int64
}

func (p DenominationPolicy) CentsToOctas(cents int64) (int64, error) {
	if p.OctasPerCent <= 0 {
		return 0, fmt.Errorf("%w: denomination policy is not configured", ErrInvalidInput)
	}
	if cents <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	octas := cents * p.OctasPerCent
	if octas/p.OctasPerCent != cents {
		return 0, fmt.Errorf("%w: amount overflows ledger units", ErrInvalidInput)
	}
	return octas, nil
}

func (p DenominationPolicy) OctasToCents(octas int64) int64 {
	if p.OctasPerCent <= 0 || octas <= 0 {
		return 0
	}
	return octas / p.OctasPerCent
}
