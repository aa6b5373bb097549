package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/etherna/sso/internal/application"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeMissingBearerError(r.Context(), w, "auth_middleware")
			return
		}

		claims, err := h.service.ValidateGrant(r.Context(), raw)
		if err != nil {
			writeMappedError(r.Context(), w, "auth_middleware", err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.RegisterPasswordAccount(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) registerWeb3(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterWalletRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register_web3", err)
		return
	}

	res, err := h.service.RegisterWalletAccount(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register_web3", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.PasswordLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	res, err := h.service.PasswordLogin(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) web3Challenge(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "etherAddress")
	res, err := h.service.RetrieveChallenge(r.Context(), address)
	if err != nil {
		writeMappedError(r.Context(), w, "web3_challenge", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) web3Login(w http.ResponseWriter, r *http.Request) {
	var req application.WalletLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "web3_login", err)
		return
	}

	res, err := h.service.WalletLogin(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "web3_login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "logout")
		return
	}
	if err := h.service.Logout(r.Context(), claims.AccountID.String()); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) currentAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "current_account")
		return
	}
	res, err := h.service.GetAccount(r.Context(), claims.AccountID.String())
	if err != nil {
		writeMappedError(r.Context(), w, "current_account", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) changeUsername(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "change_username")
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_username", err)
		return
	}
	res, err := h.service.ChangeUsername(r.Context(), claims.AccountID.String(), req.Username)
	if err != nil {
		writeMappedError(r.Context(), w, "change_username", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) changeEmail(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "change_email")
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_email", err)
		return
	}
	res, err := h.service.ChangeEmail(r.Context(), claims.AccountID.String(), req.Email)
	if err != nil {
		writeMappedError(r.Context(), w, "change_email", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "change_password")
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_password", err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), claims.AccountID.String(), req.CurrentPassword, req.NewPassword); err != nil {
		writeMappedError(r.Context(), w, "change_password", err)
		return
	}
	writeMessage(w, http.StatusOK, "password changed")
}

func (h *Handler) linkWallet(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "link_wallet")
		return
	}
	var req application.WalletLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "link_wallet", err)
		return
	}
	res, err := h.service.LinkWallet(r.Context(), claims.AccountID.String(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "link_wallet", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) unlinkWallet(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "unlink_wallet")
		return
	}
	res, err := h.service.UnlinkWallet(r.Context(), claims.AccountID.String())
	if err != nil {
		writeMappedError(r.Context(), w, "unlink_wallet", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) upgradeToWeb3(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "upgrade_web3")
		return
	}
	var req application.WalletLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "upgrade_web3", err)
		return
	}
	res, err := h.service.UpgradeToWalletAccount(r.Context(), claims.AccountID.String(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "upgrade_web3", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) changeWalletAddress(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "change_wallet_address")
		return
	}
	var req application.WalletLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "change_wallet_address", err)
		return
	}
	res, err := h.service.ChangeWalletAddress(r.Context(), claims.AccountID.String(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "change_wallet_address", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteAccountByWallet(w http.ResponseWriter, r *http.Request) {
	var req application.WalletLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "delete_account_web3", err)
		return
	}
	if err := h.service.DeleteAccountByWallet(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "delete_account_web3", err)
		return
	}
	writeMessage(w, http.StatusOK, "account deleted")
}

func (h *Handler) createApiKey(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_api_key")
		return
	}
	var req application.CreateApiKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_api_key", err)
		return
	}
	res, err := h.service.CreateApiKey(r.Context(), claims.AccountID.String(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_api_key", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listApiKeys(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_api_keys")
		return
	}
	res, err := h.service.ListApiKeys(r.Context(), claims.AccountID.String())
	if err != nil {
		writeMappedError(r.Context(), w, "list_api_keys", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getApiKey(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_api_key")
		return
	}
	res, err := h.service.GetApiKey(r.Context(), claims.AccountID.String(), chi.URLParam(r, "keyID"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_api_key", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteApiKey(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "delete_api_key")
		return
	}
	if err := h.service.DeleteApiKey(r.Context(), claims.AccountID.String(), chi.URLParam(r, "keyID")); err != nil {
		writeMappedError(r.Context(), w, "delete_api_key", err)
		return
	}
	writeMessage(w, http.StatusOK, "api key deleted")
}

// jwks serves the grant verification keys as a bare JWK set. Relying
// parties consume it directly, so it skips the envelope the /api routes use.
func (h *Handler) jwks(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.GrantKeys(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "jwks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListRoles(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_roles", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) sweepWeb3Tokens(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteExpiredWeb3LoginTokens(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "sweep_web3_tokens", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (h *Handler) sweepInvitations(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteExpiredInvitations(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "sweep_invitations", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// token implements the resource-owner-password-credentials grant used by
// API-key clients: username carries the account id, password the plaintext
// key. Every authentication failure collapses to the OAuth invalid_grant
// error; the internal kind is only logged.
func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeTokenError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostFormValue("grant_type") != "password" {
		writeTokenError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}
	accountID := strings.TrimSpace(r.PostFormValue("username"))
	plainKey := r.PostFormValue("password")
	if accountID == "" || plainKey == "" {
		writeTokenError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	res, err := h.service.ValidateApiKeyGrant(r.Context(), accountID, plainKey)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "token", status, code, msg, err)
		if status >= 500 {
			writeTokenError(w, http.StatusInternalServerError, "server_error")
			return
		}
		writeTokenError(w, http.StatusBadRequest, "invalid_grant")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": res.AccessToken,
		"token_type":   res.TokenType,
		"expires_in":   res.ExpiresIn,
	})
}
