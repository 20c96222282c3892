package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any transport-level Redis failure. Callers treat
// it as "could not confirm validity" and fail closed.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrEntryCorrupt is returned when a stored revocation blob does not decode.
var ErrEntryCorrupt = errors.New("revocation entry corrupt")

const scanBatchSize = 1000

// Only ever raise the cutoff: concurrent password changes must not move a
// subject's cutoff backwards.
const raiseCutoffScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local proposed = tonumber(ARGV[1])
if proposed > current then
  redis.call("SET", KEYS[1], proposed, "PX", ARGV[2])
  return 1
end
return 0
`

var raiseCutoffLua = redis.NewScript(raiseCutoffScript)

// Store is the Redis-backed revocation ledger. It exposes the two logical
// capabilities of the shared keyspace — exact-credential revocation and
// per-subject password-change cutoffs — as distinct query methods so each
// invariant can be reasoned about (and tested) independently.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a ledger Store backed by the given Redis client. prefix
// namespaces every key this store touches.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) entryKey(hash [32]byte) string {
	return s.entryKeyHex(hex.EncodeToString(hash[:]))
}

func (s *Store) entryKeyHex(hexHash string) string {
	return s.prefix + ":rv:" + hexHash
}

func (s *Store) subjectKey(subjectID string) string {
	return s.prefix + ":rs:" + subjectID
}

func (s *Store) cutoffKey(subjectID string) string {
	return s.prefix + ":co:" + subjectID
}

// Revoke records an idempotent revocation entry for the exact credential
// string. expiresAt must be the credential's own decoded expiry; the Redis
// TTL is derived from it so the entry self-prunes the moment the credential
// would have died anyway. Revoking an already-expired credential is a no-op.
//
//	Performance: 1 Redis MULTI (SETNX + SADD + 2 EXPIRE).
func (s *Store) Revoke(ctx context.Context, credential, subjectID string, reason Reason, expiresAt time.Time) error {
	if !reason.Valid() {
		return errors.New("invalid revocation reason")
	}

	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return nil
	}

	hash := CredentialHash(credential)
	entry := &Entry{
		EntryID:        uuid.NewString(),
		CredentialHash: hash,
		SubjectID:      subjectID,
		Reason:         reason,
		CreatedAt:      time.Now().Unix(),
		ExpiresAt:      expiresAt.Unix(),
	}

	data, err := Encode(entry)
	if err != nil {
		return err
	}

	entryKey := s.entryKey(hash)
	subjectKey := s.subjectKey(subjectID)

	// SETNX keeps the first recorded reason; a duplicate revoke is a no-op.
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, entryKey, data, remaining)
		pipe.SAdd(ctx, subjectKey, hex.EncodeToString(hash[:]))
		// EXPIRE GT treats a key without a TTL as infinite, so it alone would
		// never fire on a fresh index set. NX seeds the TTL; GT then extends
		// it to the longest-lived member without ever shortening it.
		pipe.ExpireNX(ctx, subjectKey, remaining)
		pipe.ExpireGT(ctx, subjectKey, remaining)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// IsRevoked reports whether the exact credential string is listed.
//
//	Performance: 1 Redis EXISTS; never a scan.
func (s *Store) IsRevoked(ctx context.Context, credential string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.entryKey(CredentialHash(credential))).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// ReasonFor returns the recorded revocation reason for the exact credential
// string, or false if the credential is not listed.
func (s *Store) ReasonFor(ctx context.Context, credential string) (Reason, bool, error) {
	data, err := s.redis.Get(ctx, s.entryKey(CredentialHash(credential))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	entry, err := Decode(data)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrEntryCorrupt, err)
	}

	return entry.Reason, true, nil
}

// Lookup answers both per-request ledger questions in one round-trip: the
// exact-match revocation entry for the credential and the subject's latest
// password-change cutoff.
//
//	Performance: 1 Redis pipeline (2 GETs).
func (s *Store) Lookup(ctx context.Context, credential, subjectID string) (*LookupResult, error) {
	pipe := s.redis.Pipeline()
	entryCmd := pipe.Get(ctx, s.entryKey(CredentialHash(credential)))
	cutoffCmd := pipe.Get(ctx, s.cutoffKey(subjectID))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	result := &LookupResult{}

	data, err := entryCmd.Bytes()
	switch {
	case err == nil:
		entry, decErr := Decode(data)
		if decErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrEntryCorrupt, decErr)
		}
		result.Entry = entry
	case errors.Is(err, redis.Nil):
	default:
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	raw, err := cutoffCmd.Result()
	switch {
	case err == nil:
		unix, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: invalid cutoff value", ErrEntryCorrupt)
		}
		result.Cutoff = time.Unix(unix, 0)
		result.HasCutoff = true
	case errors.Is(err, redis.Nil):
	default:
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return result, nil
}

// MarkPasswordChanged raises the subject's cutoff to at. It needs no
// credential string: the cutoff applies to every credential for the subject
// issued before at. The key lives for ttl (the credential lifetime) because
// every credential old enough to be affected has expired by then.
func (s *Store) MarkPasswordChanged(ctx context.Context, subjectID string, at time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("invalid cutoff ttl")
	}

	err := raiseCutoffLua.Run(
		ctx,
		s.redis,
		[]string{s.cutoffKey(subjectID)},
		at.Unix(),
		ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Cutoff returns the subject's latest password-change timestamp, or false if
// the subject has never had one recorded.
func (s *Store) Cutoff(ctx context.Context, subjectID string) (time.Time, bool, error) {
	raw, err := s.redis.Get(ctx, s.cutoffKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: invalid cutoff value", ErrEntryCorrupt)
	}

	return time.Unix(unix, 0), true, nil
}

// EntriesForSubject returns the live revocation entries recorded for a
// subject, oldest first. This is an audit view, not a hot-path query.
func (s *Store) EntriesForSubject(ctx context.Context, subjectID string) ([]*Entry, error) {
	members, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Entry{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(members) == 0 {
		return []*Entry{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(members))
	for i, member := range members {
		cmds[i] = pipe.Get(ctx, s.entryKeyHex(member))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	nowUnix := time.Now().Unix()
	entries := make([]*Entry, 0, len(members))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		entry, decErr := Decode(data)
		if decErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrEntryCorrupt, decErr)
		}
		if entry.ExpiresAt < nowUnix {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt < entries[j].CreatedAt
	})

	return entries, nil
}

// SweepExpired deletes every revocation entry whose recorded expiry has
// passed and reconciles the per-subject index sets. Entries written with a
// Redis TTL mostly vanish on their own; the sweep catches entries persisted
// without one and trims index members whose entry is gone. It returns the
// number of entries deleted.
//
// The sweep only ever removes logically inert state, so it is idempotent and
// safe to run zero, one, or many times, concurrently with any number of
// in-flight reads and writes.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	nowUnix := now.Unix()
	removed := 0

	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":rv:*", scanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}

			entry, decErr := Decode(data)
			if decErr != nil {
				// Undecodable blobs are left in place for operator inspection.
				continue
			}
			if entry.ExpiresAt >= nowUnix {
				continue
			}

			deleted, err := s.redis.Del(ctx, key).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			member := hex.EncodeToString(entry.CredentialHash[:])
			if err := s.redis.SRem(ctx, s.subjectKey(entry.SubjectID), member).Err(); err != nil {
				return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			removed += int(deleted)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := s.reconcileSubjectIndexes(ctx); err != nil {
		return removed, err
	}

	return removed, nil
}

// reconcileSubjectIndexes drops index members whose entry key has already
// expired out of Redis.
func (s *Store) reconcileSubjectIndexes(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":rs:*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, key := range keys {
			members, err := s.redis.SMembers(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}

			for _, member := range members {
				n, err := s.redis.Exists(ctx, s.entryKeyHex(member)).Result()
				if err != nil {
					return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
				if n == 0 {
					if err := s.redis.SRem(ctx, key, member).Err(); err != nil {
						return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
					}
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
