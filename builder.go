package sessiongate

import (
	"errors"

	"github.com/hexlago/sessiongate/ledger"
	"github.com/hexlago/sessiongate/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Gate. Chain the With* setters and call Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	provider  SubjectProvider
	auditSink AuditSink

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the revocation ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSubjectProvider sets the account lookup used after credential checks.
func (b *Builder) WithSubjectProvider(provider SubjectProvider) *Builder {
	b.provider = provider
	return b
}

// WithAuditSink sets the sink receiving audit events when auditing is
// enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the codec and ledger store, and
// starts the background sweeper when configured.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.provider == nil {
		return nil, errors.New("subject provider required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		TTL:           cfg.Token.TTL,
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		Secret:        cloneBytes(cfg.Token.Secret),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	gate := &Gate{
		config:   cfg,
		codec:    codec,
		store:    ledger.NewStore(b.redis, cfg.Ledger.RedisPrefix),
		provider: b.provider,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
	}

	if cfg.Sweep.Interval > 0 {
		gate.sweeper = newSweeper(gate, cfg.Sweep.Interval)
	}

	b.built = true

	return gate, nil
}
