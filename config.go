package sessiongate

import (
	"errors"
	"time"
)

// Config defines the gate's behavior. Instances are configured during
// initialization and treated as immutable afterwards.
type Config struct {
	Token      TokenConfig
	Ledger     LedgerConfig
	Membership MembershipConfig
	Sweep      SweepConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls credential issuance and verification.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte // hs256
	PrivateKey    []byte // ed25519
	PublicKey     []byte // ed25519
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig controls the Redis revocation store.
type LedgerConfig struct {
	RedisPrefix string
}

/*
====================================
MEMBERSHIP CONFIG
====================================
*/

// MembershipConfig controls the final authorization predicate applied after
// a credential and subject have been validated. When RequireMembership is
// false every authenticated subject is authorized. When true and
// Organizations is empty, any non-empty subject organization passes; when
// Organizations is set, the subject's organization must be listed.
type MembershipConfig struct {
	RequireMembership bool
	Organizations     []string
}

/*
====================================
SWEEP CONFIG
====================================
*/

// SweepConfig controls the background maintenance sweep. Interval 0
// disables the built-in runner; [Gate.SweepExpired] stays callable either
// way.
type SweepConfig struct {
	Interval time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics store.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. Callers still need to
// supply signing material before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Leeway:        0,
		},
		Ledger: LedgerConfig{
			RedisPrefix: "sg",
		},
		Membership: MembershipConfig{
			RequireMembership: false,
		},
		Sweep: SweepConfig{
			Interval: 0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if len(cfg.Membership.Organizations) > 0 {
		out.Membership.Organizations = append([]string(nil), cfg.Membership.Organizations...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. The token
// section is validated again, more strictly, by the codec at build time.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.SigningMethod != "hs256" && c.Token.SigningMethod != "ed25519" {
		return errors.New("unsupported token signing method")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.Secret) == 0 {
		return errors.New("hs256 requires Secret")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}

	// Ledger
	if c.Ledger.RedisPrefix == "" {
		return errors.New("Ledger RedisPrefix must not be empty")
	}

	// Membership
	for _, org := range c.Membership.Organizations {
		if org == "" {
			return errors.New("Membership Organizations must not contain empty entries")
		}
	}

	// Sweep
	if c.Sweep.Interval < 0 {
		return errors.New("Sweep Interval must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
