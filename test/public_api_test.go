package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	sessiongate "github.com/hexlago/sessiongate"
	"github.com/hexlago/sessiongate/ledger"
	"github.com/hexlago/sessiongate/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = sessiongate.New

	var _ *sessiongate.Gate
	var _ sessiongate.Config
	var _ sessiongate.Subject
	var _ sessiongate.Admission
	var _ sessiongate.SubjectProvider
	var _ sessiongate.AuditSink
	var _ *sessiongate.Denial
	var _ sessiongate.RejectionKind

	var _ error = sessiongate.ErrGateNotReady
	var _ error = sessiongate.ErrSubjectNotFound
	var _ error = sessiongate.ErrInvalidReason
	var _ error = ledger.ErrRedisUnavailable

	var _ func(*sessiongate.Gate) func(http.Handler) http.Handler = middleware.Guard

	var _ func(*sessiongate.Gate, context.Context, string) (string, error) = (*sessiongate.Gate).Issue
	var _ func(*sessiongate.Gate, context.Context, string) (*sessiongate.Admission, error) = (*sessiongate.Gate).Authenticate
	var _ func(*sessiongate.Gate, context.Context, string) error = (*sessiongate.Gate).Logout
	var _ func(*sessiongate.Gate, context.Context, string) error = (*sessiongate.Gate).AdminRevoke
	var _ func(*sessiongate.Gate, context.Context, string, ledger.Reason) error = (*sessiongate.Gate).RevokeCredential
	var _ func(*sessiongate.Gate, context.Context, string) error = (*sessiongate.Gate).MarkPasswordChanged
	var _ func(*sessiongate.Gate, context.Context) (int, error) = (*sessiongate.Gate).SweepExpired
}

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := sessiongate.DefaultConfig()

	if cfg.Token.TTL != 7*24*time.Hour {
		t.Fatalf("default TTL = %v, want 168h", cfg.Token.TTL)
	}
	if cfg.Token.SigningMethod != "hs256" {
		t.Fatalf("default signing method = %q, want hs256", cfg.Token.SigningMethod)
	}
	if cfg.Ledger.RedisPrefix != "sg" {
		t.Fatalf("default prefix = %q, want sg", cfg.Ledger.RedisPrefix)
	}

	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with secret should validate, got %v", err)
	}
}
