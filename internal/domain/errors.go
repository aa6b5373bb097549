package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict signals a uniqueness rejection the persistence layer reported reactively.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput covers missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidFormat covers malformed usernames, emails and Ethereum addresses.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvariantViolation is returned when a mutation would break an aggregate invariant,
	// e.g. removing the last viable login method.
	ErrInvariantViolation = errors.New("invariant violation")

	// Named uniqueness conflicts detected by lookup-before-write.
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")
	ErrAddressTaken  = errors.New("ethereum address already registered")

	// Wallet challenge failures.
	ErrChallengeNotFound = errors.New("no sign-in challenge for address")
	ErrSignatureMismatch = errors.New("signature does not recover to claimed address")

	// Credential validation failures. These are logged with their specific kind
	// internally but collapse to a generic invalid-grant at the protocol boundary.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrKeyNotFound        = errors.New("api key not found")
	ErrKeyExpired         = errors.New("api key expired")
	ErrLockedOut          = errors.New("account locked out")
	ErrNotAllowed         = errors.New("account not allowed to sign in")

	// ErrMaxKeysReached prevents an owner from holding more than MaxKeysPerOwner alive keys.
	ErrMaxKeysReached = errors.New("maximum number of alive api keys reached")

	// ErrInvitationRequired and friends guard invitation redemption during registration.
	ErrInvitationRequired = errors.New("invitation code required")
	ErrInvitationInvalid  = errors.New("invitation code invalid or expired")
)
