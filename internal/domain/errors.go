package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrSessionNotFound means no ephemeral key material exists for the presented session id.
	// The caller must restart the authentication flow; a fresh pair is never substituted silently.
	ErrSessionNotFound = errors.New("auth session not found")
	// ErrSessionExpired means the ephemeral key pair's fixed expiry has passed.
	// Expiry is inclusive: a pair whose expiry equals "now" is already unusable.
	ErrSessionExpired = errors.New("auth session expired")
	// ErrInvalidToken covers every identity-token verification failure, including a
	// nonce mismatch. The reason is surfaced generically to avoid leaking verifier detail.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrDerivation signals the claims/ephemeral-pair binding check failed or the
	// issuer is not in the configured provider set.
	ErrDerivation = errors.New("account derivation failed")
	// ErrAuthenticationExpired means the keyless signing capability lapsed between
	// sign-in and submission. The caller re-authenticates; stale material is never reused.
	ErrAuthenticationExpired = errors.New("authentication expired")
	// ErrSubmissionRejected is terminal for the attempt: the node or contract refused
	// the transaction. Never retried automatically.
	ErrSubmissionRejected = errors.New("transaction rejected")
	// ErrNetworkUnavailable is a transport failure before the node accepted the
	// transaction. No state change occurred, so retrying is safe.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrConfirmationTimeout means a hash was returned but finality was not observed
	// within the configured window.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	// ErrTransactionStatusUnknown marks the ambiguous post-acceptance state: the
	// submission may or may not have landed. It must never be reported as success
	// and must never trigger an automatic resubmit.
	ErrTransactionStatusUnknown = errors.New("transaction status unknown")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrInvalidInput             = errors.New("invalid input")
	ErrConflict                 = errors.New("conflict")
	ErrIdempotencyConflict      = errors.New("idempotency conflict")
	ErrNotImplemented           = errors.New("not implemented")
)
