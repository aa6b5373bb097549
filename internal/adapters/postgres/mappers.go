package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/etherna/sso/internal/domain"
)

func toAccountModel(a *domain.Account) (accountModel, []accountLoginModel, error) {
	previous, err := marshalJSON(a.EtherPreviousAddresses)
	if err != nil {
		return accountModel{}, nil, err
	}
	roles, err := marshalJSON(a.Roles)
	if err != nil {
		return accountModel{}, nil, err
	}
	claims, err := marshalJSON(a.CustomClaims)
	if err != nil {
		return accountModel{}, nil, err
	}

	rec := accountModel{
		AccountID:              a.ID,
		Kind:                   string(a.Kind),
		Username:               a.Username,
		NormalizedUsername:     a.NormalizedUsername,
		Email:                  nullableString(a.Email),
		NormalizedEmail:        nullableString(a.NormalizedEmail),
		EmailConfirmed:         a.EmailConfirmed,
		EtherAddress:           a.EtherAddress,
		EtherPreviousAddresses: previous,
		Roles:                  roles,
		CustomClaims:           claims,
		InvitedByID:            a.InvitedByID,
		LastLoginAt:            a.LastLoginAt,
		SecurityStamp:          a.SecurityStamp,
		AccessFailedCount:      a.AccessFailedCount,
		LockoutEnd:             a.LockoutEnd,
		Disabled:               a.Disabled,
		CreatedAt:              a.CreatedAt,
		UpdatedAt:              a.UpdatedAt,
	}

	var logins []accountLoginModel
	if a.Kind == domain.KindPassword {
		rec.PasswordHash = nullableString(a.Password.PasswordHash)
		rec.EtherManagedPrivateKey = nullableString(a.Password.EtherManagedPrivateKey)
		rec.EtherLoginAddress = nullableString(a.Password.EtherLoginAddress)
		rec.TwoFactorEnabled = a.Password.TwoFactorEnabled
		rec.AuthenticatorKey = nullableString(a.Password.AuthenticatorKey)
		if len(a.Password.TwoFactorRecoveryCodes) > 0 {
			codes, err := marshalJSON(a.Password.TwoFactorRecoveryCodes)
			if err != nil {
				return accountModel{}, nil, err
			}
			rec.TwoFactorRecoveryCodes = &codes
		}
		for _, login := range a.Password.Logins {
			logins = append(logins, accountLoginModel{
				AccountID:   a.ID,
				Provider:    login.Provider,
				ProviderKey: login.ProviderKey,
				DisplayName: login.DisplayName,
			})
		}
	}
	return rec, logins, nil
}

func toDomainAccount(rec accountModel, logins []accountLoginModel) (*domain.Account, error) {
	a := &domain.Account{
		ID:                 rec.AccountID,
		Kind:               domain.AccountKind(rec.Kind),
		Username:           rec.Username,
		NormalizedUsername: rec.NormalizedUsername,
		Email:              stringOrEmpty(rec.Email),
		NormalizedEmail:    stringOrEmpty(rec.NormalizedEmail),
		EmailConfirmed:     rec.EmailConfirmed,
		EtherAddress:       rec.EtherAddress,
		InvitedByID:        rec.InvitedByID,
		LastLoginAt:        rec.LastLoginAt,
		SecurityStamp:      rec.SecurityStamp,
		AccessFailedCount:  rec.AccessFailedCount,
		LockoutEnd:         rec.LockoutEnd,
		Disabled:           rec.Disabled,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	if err := unmarshalJSON(rec.EtherPreviousAddresses, &a.EtherPreviousAddresses); err != nil {
		return nil, fmt.Errorf("decode previous addresses: %w", err)
	}
	if err := unmarshalJSON(rec.Roles, &a.Roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	if err := unmarshalJSON(rec.CustomClaims, &a.CustomClaims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	if a.Kind == domain.KindPassword {
		profile := &domain.PasswordProfile{
			PasswordHash:           stringOrEmpty(rec.PasswordHash),
			EtherManagedPrivateKey: stringOrEmpty(rec.EtherManagedPrivateKey),
			EtherLoginAddress:      stringOrEmpty(rec.EtherLoginAddress),
			TwoFactorEnabled:       rec.TwoFactorEnabled,
			AuthenticatorKey:       stringOrEmpty(rec.AuthenticatorKey),
		}
		if rec.TwoFactorRecoveryCodes != nil {
			if err := unmarshalJSON(*rec.TwoFactorRecoveryCodes, &profile.TwoFactorRecoveryCodes); err != nil {
				return nil, fmt.Errorf("decode recovery codes: %w", err)
			}
		}
		for _, login := range logins {
			profile.Logins = append(profile.Logins, domain.ExternalLogin{
				Provider:    login.Provider,
				ProviderKey: login.ProviderKey,
				DisplayName: login.DisplayName,
			})
		}
		a.Password = profile
	}
	return a, nil
}

func toDomainWeb3LoginToken(rec web3LoginTokenModel) *domain.Web3LoginToken {
	return &domain.Web3LoginToken{
		ID:           rec.TokenID,
		EtherAddress: rec.EtherAddress,
		Code:         rec.Code,
		CreatedAt:    rec.CreatedAt,
	}
}

func toDomainApiKey(rec apiKeyModel) *domain.ApiKey {
	return &domain.ApiKey{
		ID:        rec.KeyID,
		KeyHash:   rec.KeyHash,
		Label:     rec.Label,
		EndOfLife: rec.EndOfLife,
		OwnerID:   rec.OwnerID,
		CreatedAt: rec.CreatedAt,
	}
}

func toDomainInvitation(rec invitationModel) *domain.Invitation {
	return &domain.Invitation{
		ID:          rec.InvitationID,
		Code:        rec.Code,
		EmitterID:   rec.EmitterID,
		EndLife:     rec.EndLife,
		IsSingleUse: rec.IsSingleUse,
		IsFromAdmin: rec.IsFromAdmin,
		CreatedAt:   rec.CreatedAt,
	}
}

func toDomainRole(rec roleModel) *domain.Role {
	return &domain.Role{
		ID:             rec.RoleID,
		Name:           rec.Name,
		NormalizedName: rec.NormalizedName,
		CreatedAt:      rec.CreatedAt,
	}
}

func marshalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode jsonb: %w", err)
	}
	return string(raw), nil
}

func unmarshalJSON[T any](raw string, out *T) error {
	if strings.TrimSpace(raw) == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
