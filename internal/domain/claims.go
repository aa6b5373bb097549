package domain

// Claim is a type+value pair attached to an account and surfaced to the
// OIDC layer. Default claims are derived from account state; custom claims
// are caller-defined and may not shadow a default-claim type.
type Claim struct {
	Type  string
	Value string
}

// Default claim types owned by the identity aggregate.
const (
	ClaimTypeEtherAddress         = "ether_address"
	ClaimTypeEtherPreviousAddress = "ether_prev_addresses"
	ClaimTypeIsWeb3Account        = "is_web3_account"
	ClaimTypePreferredUsername    = "preferred_username"
	ClaimTypeRole                 = "role"
)

var reservedClaimTypes = map[string]struct{}{
	ClaimTypeEtherAddress:         {},
	ClaimTypeEtherPreviousAddress: {},
	ClaimTypeIsWeb3Account:        {},
	ClaimTypePreferredUsername:    {},
	ClaimTypeRole:                 {},
}

// IsReservedClaimType reports whether a claim type belongs to the
// default-claim set and therefore cannot be set as a custom claim.
func IsReservedClaimType(claimType string) bool {
	_, ok := reservedClaimTypes[claimType]
	return ok
}
