package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	sessiongate "github.com/hexlago/sessiongate"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type staticProvider struct {
	subjects map[string]sessiongate.Subject
}

func (p *staticProvider) GetSubjectByID(_ context.Context, subjectID string) (sessiongate.Subject, error) {
	subject, ok := p.subjects[subjectID]
	if !ok {
		return sessiongate.Subject{}, sessiongate.ErrSubjectNotFound
	}
	return subject, nil
}

func newTestStack(t *testing.T, mutate func(*sessiongate.Config)) (*sessiongate.Gate, *miniredis.Miniredis, http.Handler) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := sessiongate.Config{
		Token: sessiongate.TokenConfig{
			TTL:           7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Secret:        testSecret,
		},
		Ledger: sessiongate.LedgerConfig{RedisPrefix: "sg"},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	gate, err := sessiongate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSubjectProvider(&staticProvider{subjects: map[string]sessiongate.Subject{
			"subject-u": {SubjectID: "subject-u", Identifier: "u@example.com", Organization: "acme"},
		}}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(gate.Close)

	protected := Guard(gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admission, ok := AdmissionFromContext(r.Context())
		if !ok {
			t.Error("admission missing from authenticated request context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"subject": admission.SubjectID})
	}))

	return gate, mr, protected
}

func request(t *testing.T, handler http.Handler, credential string) (int, map[string]string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := map[string]string{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body
}

func TestGuardAdmitsValidCredential(t *testing.T) {
	gate, _, protected := newTestStack(t, nil)

	credential, err := gate.Issue(context.Background(), "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	status, body := request(t, protected, credential)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["subject"] != "subject-u" {
		t.Fatalf("handler saw subject %q", body["subject"])
	}
}

func TestGuardMissingAndMalformedCredential(t *testing.T) {
	_, _, protected := newTestStack(t, nil)

	status, body := request(t, protected, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] != "authentication required" {
		t.Fatalf("error = %q", body["error"])
	}

	status, body = request(t, protected, "garbage")
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] != "invalid session, please log in again" {
		t.Fatalf("error = %q", body["error"])
	}
}

// Scenario: logout revokes exactly the presented credential; a fresh login
// works immediately.
func TestGuardLogoutFlow(t *testing.T) {
	gate, _, protected := newTestStack(t, nil)
	ctx := context.Background()

	credentialA, err := gate.Issue(ctx, "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := gate.Logout(ctx, credentialA); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	status, body := request(t, protected, credentialA)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] != "session ended by logout, please log in again" {
		t.Fatalf("error = %q, want the logout-specific message", body["error"])
	}

	credentialB, err := gate.Issue(ctx, "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if status, _ := request(t, protected, credentialB); status != http.StatusOK {
		t.Fatalf("fresh credential status = %d, want 200", status)
	}
}

// Scenario: a password change voids every credential issued before it, with
// no individual revocation calls.
func TestGuardPasswordChangeFlow(t *testing.T) {
	gate, _, protected := newTestStack(t, nil)
	ctx := context.Background()

	claims := jwt.RegisteredClaims{
		Subject:   "subject-u",
		ID:        "older",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	older, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	if status, _ := request(t, protected, older); status != http.StatusOK {
		t.Fatalf("pre-change status = %d, want 200", status)
	}

	if err := gate.MarkPasswordChanged(ctx, "subject-u"); err != nil {
		t.Fatalf("MarkPasswordChanged failed: %v", err)
	}

	status, body := request(t, protected, older)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] != "password changed, please log in again" {
		t.Fatalf("error = %q, want the password-change message", body["error"])
	}

	fresh, err := gate.Issue(ctx, "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if status, _ := request(t, protected, fresh); status != http.StatusOK {
		t.Fatalf("post-change status = %d, want 200", status)
	}
}

// Scenario: administrative revocation voids one credential while a sibling
// for the same subject stays valid.
func TestGuardAdminRevokeFlow(t *testing.T) {
	gate, _, protected := newTestStack(t, nil)
	ctx := context.Background()

	credentialD, err := gate.Issue(ctx, "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	credentialE, err := gate.Issue(ctx, "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := gate.AdminRevoke(ctx, credentialD); err != nil {
		t.Fatalf("AdminRevoke failed: %v", err)
	}

	status, body := request(t, protected, credentialD)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] != "session revoked by an administrator, please log in again" {
		t.Fatalf("error = %q, want the admin-revocation message", body["error"])
	}

	if status, _ := request(t, protected, credentialE); status != http.StatusOK {
		t.Fatalf("sibling credential status = %d, want 200", status)
	}
}

func TestGuardMembershipForbidden(t *testing.T) {
	gate, _, protected := newTestStack(t, func(cfg *sessiongate.Config) {
		cfg.Membership.RequireMembership = true
		cfg.Membership.Organizations = []string{"other-org"}
	})

	credential, err := gate.Issue(context.Background(), "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	status, body := request(t, protected, credential)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if body["error"] == "" {
		t.Fatal("403 body must carry an error message")
	}
}

func TestGuardFailsClosedWhenStoreDown(t *testing.T) {
	gate, mr, protected := newTestStack(t, nil)

	credential, err := gate.Issue(context.Background(), "subject-u")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mr.Close()

	status, _ := request(t, protected, credential)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 (fail-closed)", status)
	}
}

func TestGuardExpiredCredentialMessage(t *testing.T) {
	_, _, protected := newTestStack(t, nil)

	claims := jwt.RegisteredClaims{
		Subject:   "subject-u",
		ID:        "expired",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	status, body := request(t, protected, expired)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if body["error"] != "session expired, please log in again" {
		t.Fatalf("error = %q", body["error"])
	}
}
