package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountKind discriminates the two account variants. A password account
// ("web2") authenticates with a password, external providers, or an optional
// linked wallet; a wallet account ("web3") authenticates with its externally
// owned Ethereum address only.
type AccountKind string

const (
	KindPassword AccountKind = "web2"
	KindWallet   AccountKind = "web3"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.\-]{4,31}$`)

// ExternalLogin is an OAuth login reference, at most one per provider.
type ExternalLogin struct {
	Provider    string
	ProviderKey string
	DisplayName string
}

// PasswordProfile holds the state specific to password accounts.
// It is present iff Kind == KindPassword.
type PasswordProfile struct {
	PasswordHash string

	// EtherManagedPrivateKey is the server-custodied wallet backing the
	// account's primary address. Derived at registration, never user-supplied.
	EtherManagedPrivateKey string

	// EtherLoginAddress is an optional externally owned wallet the user
	// verified for login, distinct from the managed address.
	EtherLoginAddress string

	Logins                 []ExternalLogin
	TwoFactorEnabled       bool
	AuthenticatorKey       string
	TwoFactorRecoveryCodes []string
}

// Account is the canonical identity aggregate: shared base fields plus the
// variant discriminator. All state transitions go through its methods so
// invariants hold and domain events are queued consistently.
type Account struct {
	EventQueue

	ID   uuid.UUID
	Kind AccountKind

	Username           string
	NormalizedUsername string
	Email              string
	NormalizedEmail    string
	EmailConfirmed     bool

	// EtherAddress is the account's canonical on-chain address in checksum
	// form. For wallet accounts it is the externally owned address; for
	// password accounts it is the managed wallet's address.
	EtherAddress           string
	EtherPreviousAddresses []string

	Roles        []string
	CustomClaims []Claim

	InvitedByID *uuid.UUID

	LastLoginAt   *time.Time
	SecurityStamp string

	AccessFailedCount int
	LockoutEnd        *time.Time
	Disabled          bool

	CreatedAt time.Time
	UpdatedAt time.Time

	Password *PasswordProfile
}

// NewPasswordAccount creates a web2 account backed by a server-managed wallet.
// The managed address becomes the account's canonical EtherAddress.
func NewPasswordAccount(username, managedPrivateKey, managedAddress, securityStamp string, invitedBy *uuid.UUID, now time.Time) (*Account, error) {
	a := &Account{
		ID:            uuid.New(),
		Kind:          KindPassword,
		EtherAddress:  managedAddress,
		SecurityStamp: securityStamp,
		InvitedByID:   invitedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		Password: &PasswordProfile{
			EtherManagedPrivateKey: managedPrivateKey,
		},
	}
	if err := a.SetUsername(username); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWalletAccount creates a web3 account whose identity is the externally
// owned address itself.
func NewWalletAccount(username, etherAddress, securityStamp string, invitedBy *uuid.UUID, now time.Time) (*Account, error) {
	a := &Account{
		ID:            uuid.New(),
		Kind:          KindWallet,
		EtherAddress:  etherAddress,
		SecurityStamp: securityStamp,
		InvitedByID:   invitedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.SetUsername(username); err != nil {
		return nil, err
	}
	return a, nil
}

// NormalizeUsername returns the canonical form used for uniqueness checks.
func NormalizeUsername(username string) string {
	return strings.ToUpper(strings.TrimSpace(username))
}

// NormalizeEmail returns the canonical form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToUpper(strings.TrimSpace(email))
}

// ValidUsername reports whether a username matches the account username syntax.
func ValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// ValidEmail reports whether an email address parses as a mailbox address.
func ValidEmail(email string) bool {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return false
	}
	_, err := mail.ParseAddress(trimmed)
	return err == nil
}

// SetUsername validates and updates the username plus its normalized form.
// Setting the current value is a no-op.
func (a *Account) SetUsername(username string) error {
	username = strings.TrimSpace(username)
	if !ValidUsername(username) {
		return fmt.Errorf("%w: invalid username %q", ErrInvalidFormat, username)
	}
	normalized := NormalizeUsername(username)
	if normalized == a.NormalizedUsername {
		return nil
	}
	a.Username = username
	a.NormalizedUsername = normalized
	return nil
}

// SetEmail validates and updates the email plus its normalized form.
// A changed email resets EmailConfirmed; setting the current value is a no-op.
func (a *Account) SetEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !ValidEmail(email) {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidFormat, email)
	}
	normalized := NormalizeEmail(email)
	if normalized == a.NormalizedEmail {
		return nil
	}
	a.Email = email
	a.NormalizedEmail = normalized
	a.EmailConfirmed = false
	return nil
}

// ClearEmail removes the optional email from the account.
func (a *Account) ClearEmail() {
	a.Email = ""
	a.NormalizedEmail = ""
	a.EmailConfirmed = false
}

// ConfirmEmail marks the current email as verified.
func (a *Account) ConfirmEmail() error {
	if a.NormalizedEmail == "" {
		return fmt.Errorf("%w: no email to confirm", ErrInvariantViolation)
	}
	a.EmailConfirmed = true
	return nil
}

// AddLogin links an external OAuth login, enforcing one login per provider.
func (a *Account) AddLogin(login ExternalLogin) error {
	if a.Kind != KindPassword {
		return fmt.Errorf("%w: wallet accounts cannot hold external logins", ErrInvariantViolation)
	}
	if strings.TrimSpace(login.Provider) == "" || strings.TrimSpace(login.ProviderKey) == "" {
		return fmt.Errorf("%w: provider and provider key are required", ErrInvalidInput)
	}
	for _, existing := range a.Password.Logins {
		if existing.Provider == login.Provider {
			return fmt.Errorf("%w: login for provider %q already present", ErrConflict, login.Provider)
		}
	}
	a.Password.Logins = append(a.Password.Logins, login)
	return nil
}

// RemoveLogin unlinks an external login. Removal that would leave the
// account without any viable login method fails.
func (a *Account) RemoveLogin(provider, providerKey string) error {
	if a.Kind != KindPassword {
		return fmt.Errorf("%w: wallet accounts hold no external logins", ErrInvariantViolation)
	}
	idx := -1
	for i, login := range a.Password.Logins {
		if login.Provider == provider && login.ProviderKey == providerKey {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	remaining := append(append([]ExternalLogin{}, a.Password.Logins[:idx]...), a.Password.Logins[idx+1:]...)
	if !a.hasLoginMethodBesides(len(remaining) > 0) {
		return fmt.Errorf("%w: removing last viable login method", ErrInvariantViolation)
	}
	a.Password.Logins = remaining
	return nil
}

// SetPasswordHash installs or replaces the password credential.
func (a *Account) SetPasswordHash(hash string) error {
	if a.Kind != KindPassword {
		return fmt.Errorf("%w: wallet accounts have no password", ErrInvariantViolation)
	}
	a.Password.PasswordHash = hash
	return nil
}

// RemovePassword clears the password credential unless it is the last
// viable login method.
func (a *Account) RemovePassword() error {
	if a.Kind != KindPassword {
		return fmt.Errorf("%w: wallet accounts have no password", ErrInvariantViolation)
	}
	if a.Password.PasswordHash == "" {
		return nil
	}
	if len(a.Password.Logins) == 0 && a.Password.EtherLoginAddress == "" {
		return fmt.Errorf("%w: removing last viable login method", ErrInvariantViolation)
	}
	a.Password.PasswordHash = ""
	return nil
}

// SetEtherLoginAddress links a verified externally owned wallet for login.
// The caller must have already consumed a wallet challenge for the address.
func (a *Account) SetEtherLoginAddress(checksumAddress string) error {
	if a.Kind != KindPassword {
		return fmt.Errorf("%w: wallet accounts already authenticate with their address", ErrInvariantViolation)
	}
	a.Password.EtherLoginAddress = checksumAddress
	return nil
}

// RemoveEtherLoginAddress unlinks the login wallet unless it is the last
// viable login method.
func (a *Account) RemoveEtherLoginAddress() error {
	if a.Kind != KindPassword {
		return fmt.Errorf("%w: wallet accounts have no separate login address", ErrInvariantViolation)
	}
	if a.Password.EtherLoginAddress == "" {
		return ErrNotFound
	}
	if !a.canLoginWithPasswordCredential() && len(a.Password.Logins) == 0 {
		return fmt.Errorf("%w: removing last viable login method", ErrInvariantViolation)
	}
	a.Password.EtherLoginAddress = ""
	return nil
}

// AddRole adds a role by normalized name with set semantics.
// Returns false when the role was already present.
func (a *Account) AddRole(name string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	if normalized == "" {
		return false
	}
	for _, role := range a.Roles {
		if role == normalized {
			return false
		}
	}
	a.Roles = append(a.Roles, normalized)
	return true
}

// RemoveRole removes a role by normalized name.
// Returns false when the role was not present.
func (a *Account) RemoveRole(name string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for i, role := range a.Roles {
		if role == normalized {
			a.Roles = append(a.Roles[:i], a.Roles[i+1:]...)
			return true
		}
	}
	return false
}

// HasRole reports membership by normalized name.
func (a *Account) HasRole(name string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for _, role := range a.Roles {
		if role == normalized {
			return true
		}
	}
	return false
}

// AddClaim appends a custom claim. Reserved default-claim types and exact
// duplicates are rejected with a false return, not an error.
func (a *Account) AddClaim(claim Claim) bool {
	if IsReservedClaimType(claim.Type) {
		return false
	}
	if strings.TrimSpace(claim.Type) == "" {
		return false
	}
	for _, existing := range a.CustomClaims {
		if existing == claim {
			return false
		}
	}
	a.CustomClaims = append(a.CustomClaims, claim)
	return true
}

// RemoveClaim removes an exact type+value custom claim.
func (a *Account) RemoveClaim(claimType, value string) bool {
	for i, existing := range a.CustomClaims {
		if existing.Type == claimType && existing.Value == value {
			a.CustomClaims = append(a.CustomClaims[:i], a.CustomClaims[i+1:]...)
			return true
		}
	}
	return false
}

// DefaultClaims derives the claim set owned by the aggregate: address,
// previous addresses, account-kind flag, username, one claim per role.
func (a *Account) DefaultClaims() []Claim {
	claims := []Claim{
		{Type: ClaimTypeEtherAddress, Value: a.EtherAddress},
		{Type: ClaimTypeIsWeb3Account, Value: fmt.Sprintf("%t", a.Kind == KindWallet)},
		{Type: ClaimTypePreferredUsername, Value: a.Username},
	}
	for _, prev := range a.EtherPreviousAddresses {
		claims = append(claims, Claim{Type: ClaimTypeEtherPreviousAddress, Value: prev})
	}
	for _, role := range a.Roles {
		claims = append(claims, Claim{Type: ClaimTypeRole, Value: role})
	}
	return claims
}

// AllClaims is the union of default and custom claims.
func (a *Account) AllClaims() []Claim {
	return append(a.DefaultClaims(), a.CustomClaims...)
}

// RedeemTwoFactorRecoveryCode consumes a single-use recovery code.
// A miss is an expected outcome, so it returns false without error.
func (a *Account) RedeemTwoFactorRecoveryCode(code string) bool {
	if a.Kind != KindPassword {
		return false
	}
	for i, existing := range a.Password.TwoFactorRecoveryCodes {
		if existing == code {
			a.Password.TwoFactorRecoveryCodes = append(
				a.Password.TwoFactorRecoveryCodes[:i],
				a.Password.TwoFactorRecoveryCodes[i+1:]...,
			)
			return true
		}
	}
	return false
}

// RefreshSecurityStamp invalidates downstream sessions and queues the
// refresh-login signal for the OIDC layer.
func (a *Account) RefreshSecurityStamp(stamp string, now time.Time) {
	a.SecurityStamp = stamp
	a.Raise(UserRefreshLogin{AccountID: a.ID, At: now})
}

// RegisterLoginSuccess resets lockout counters and queues UserLoginSuccess.
// LastLoginAt bookkeeping is handled by a registered event handler.
func (a *Account) RegisterLoginSuccess(method string, now time.Time) {
	a.AccessFailedCount = 0
	a.LockoutEnd = nil
	a.Raise(UserLoginSuccess{AccountID: a.ID, Method: method, At: now})
}

// RegisterLoginFailure increments the shared failed-access counter, locks
// the account at the threshold, and queues UserLoginFailure. Password and
// API-key failures both flow through here.
func (a *Account) RegisterLoginFailure(reason string, now time.Time, threshold int, lockout time.Duration) {
	a.AccessFailedCount++
	if threshold > 0 && a.AccessFailedCount >= threshold {
		until := now.Add(lockout)
		a.LockoutEnd = &until
	}
	a.Raise(UserLoginFailure{AccountID: a.ID, Reason: reason, At: now})
}

// RegisterLogout queues UserLogoutSuccess.
func (a *Account) RegisterLogout(now time.Time) {
	a.Raise(UserLogoutSuccess{AccountID: a.ID, At: now})
}

// IsLockedOut reports whether a lockout window is currently active.
func (a *Account) IsLockedOut(now time.Time) bool {
	return a.LockoutEnd != nil && a.LockoutEnd.After(now)
}

// CanSignIn reports whether the account is globally allowed to authenticate.
func (a *Account) CanSignIn() bool {
	return !a.Disabled
}

// UpgradeToWallet converts a password account with a verified login wallet
// into a wallet account in place. The managed address moves into the
// previous-address history and the password profile is dropped. The caller
// persists the result as a single write.
func (a *Account) UpgradeToWallet(now time.Time) error {
	if a.Kind != KindPassword {
		return fmt.Errorf("%w: account is already a wallet account", ErrInvariantViolation)
	}
	if a.Password.EtherLoginAddress == "" {
		return fmt.Errorf("%w: no verified login wallet to upgrade to", ErrInvariantViolation)
	}
	a.EtherPreviousAddresses = append(a.EtherPreviousAddresses, a.EtherAddress)
	a.EtherAddress = a.Password.EtherLoginAddress
	a.Password = nil
	a.Kind = KindWallet
	a.UpdatedAt = now
	a.Raise(UserRefreshLogin{AccountID: a.ID, At: now})
	return nil
}

// ChangeEtherAddress rotates a wallet account's canonical address to a new
// verified one. The old address moves into the history and the security
// stamp rotates so existing sessions drop. Setting the current address is
// a no-op.
func (a *Account) ChangeEtherAddress(checksumAddress, stamp string, now time.Time) error {
	if a.Kind != KindWallet {
		return fmt.Errorf("%w: only wallet accounts can rotate their address", ErrInvariantViolation)
	}
	if checksumAddress == a.EtherAddress {
		return nil
	}
	a.EtherPreviousAddresses = append(a.EtherPreviousAddresses, a.EtherAddress)
	a.EtherAddress = checksumAddress
	a.UpdatedAt = now
	a.RefreshSecurityStamp(stamp, now)
	return nil
}

func (a *Account) canLoginWithPasswordCredential() bool {
	return a.Kind == KindPassword &&
		a.Password.PasswordHash != "" &&
		(a.NormalizedUsername != "" || a.NormalizedEmail != "")
}

// hasLoginMethodBesides evaluates the keep-at-least-one-login invariant
// assuming the external-login set collapses to hasLogins.
func (a *Account) hasLoginMethodBesides(hasLogins bool) bool {
	if a.Kind == KindWallet {
		return true
	}
	return a.canLoginWithPasswordCredential() || hasLogins || a.Password.EtherLoginAddress != ""
}

// CanLoginWithPassword reports whether password authentication is viable.
func CanLoginWithPassword(a *Account) bool {
	return a.canLoginWithPasswordCredential()
}

// CanLoginWithExternalProvider reports whether any external OAuth login is linked.
func CanLoginWithExternalProvider(a *Account) bool {
	return a.Kind == KindPassword && len(a.Password.Logins) > 0
}

// CanLoginWithWallet reports whether wallet challenge authentication is viable.
func CanLoginWithWallet(a *Account) bool {
	if a.Kind == KindWallet {
		return a.EtherAddress != ""
	}
	return a.Password.EtherLoginAddress != ""
}

// LoginAddress returns the address a wallet challenge must recover to for
// this account: the canonical address for wallet accounts, the linked login
// address for password accounts.
func (a *Account) LoginAddress() string {
	if a.Kind == KindWallet {
		return a.EtherAddress
	}
	return a.Password.EtherLoginAddress
}
