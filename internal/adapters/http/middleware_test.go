package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/etherna/sso/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid format", err: domain.ErrInvalidFormat, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "invalid input wrapped", err: fmt.Errorf("wrap: %w", domain.ErrInvalidInput), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "invalid credentials", err: domain.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "signature mismatch", err: domain.ErrSignatureMismatch, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "key not found", err: domain.ErrKeyNotFound, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "key expired", err: domain.ErrKeyExpired, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "locked out", err: domain.ErrLockedOut, wantStatus: http.StatusTooManyRequests, wantCode: "ACCOUNT_LOCKED"},
		{name: "not allowed", err: domain.ErrNotAllowed, wantStatus: http.StatusForbidden, wantCode: "NOT_ALLOWED"},
		{name: "username taken", err: domain.ErrUsernameTaken, wantStatus: http.StatusConflict, wantCode: "USERNAME_TAKEN"},
		{name: "email taken", err: domain.ErrEmailTaken, wantStatus: http.StatusConflict, wantCode: "EMAIL_TAKEN"},
		{name: "address taken", err: domain.ErrAddressTaken, wantStatus: http.StatusConflict, wantCode: "ADDRESS_TAKEN"},
		{name: "challenge not found", err: domain.ErrChallengeNotFound, wantStatus: http.StatusBadRequest, wantCode: "CHALLENGE_NOT_FOUND"},
		{name: "max keys", err: domain.ErrMaxKeysReached, wantStatus: http.StatusConflict, wantCode: "MAX_KEYS_REACHED"},
		{name: "invitation required", err: domain.ErrInvitationRequired, wantStatus: http.StatusForbidden, wantCode: "INVITATION_REQUIRED"},
		{name: "invitation invalid", err: domain.ErrInvitationInvalid, wantStatus: http.StatusForbidden, wantCode: "INVITATION_INVALID"},
		{name: "invariant violation", err: domain.ErrInvariantViolation, wantStatus: http.StatusBadRequest, wantCode: "INVARIANT_VIOLATION"},
		{name: "conflict", err: domain.ErrConflict, wantStatus: http.StatusConflict, wantCode: "CONFLICT"},
		{name: "not found", err: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "unknown error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, code, _ := mapDomainError(tc.err)
			if status != tc.wantStatus || code != tc.wantCode {
				t.Fatalf("mapDomainError(%v) = (%d, %q), want (%d, %q)", tc.err, status, code, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestBearerTokenFromHeader(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "empty header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "bare prefix", header: "Bearer ", wantErr: true},
		{name: "lowercase scheme", header: "bearer abc", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := bearerTokenFromHeader(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("bearerTokenFromHeader(%q) = %v", tc.header, err)
			}
			if got != tc.want {
				t.Fatalf("token = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	type payload struct {
		Username string `json:"username"`
	}

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"username":"alice_01"}`},
		{name: "unknown field", body: `{"username":"alice_01","extra":1}`, wantErr: true},
		{name: "trailing value", body: `{"username":"a"}{"username":"b"}`, wantErr: true},
		{name: "not json", body: `username=alice`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst payload
			err := decodeBody(r, &dst)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for body %q", tc.body)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("decodeBody(%q) = %v", tc.body, err)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" {
			t.Fatalf("request id must be generated")
		}
		if rec.Header().Get("X-Request-Id") != seen {
			t.Fatalf("request id must be echoed in the response header")
		}
	})

	t.Run("propagates when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if seen != "req-123" {
			t.Fatalf("request id = %q, want req-123", seen)
		}
	})
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	handler := recoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("body = %q, want INTERNAL_ERROR envelope", rec.Body.String())
	}
}
