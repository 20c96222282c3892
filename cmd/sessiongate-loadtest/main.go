package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	sessiongate "github.com/hexlago/sessiongate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type credentialState struct {
	subjectID  string
	credential string
	mu         sync.Mutex
}

func main() {
	var (
		subjects    = flag.Int("subjects", 100000, "number of subjects to seed with one credential each")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (authenticate + revoke)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sg", "ledger key prefix")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	provider := newSeededProvider(*subjects)

	cfg := sessiongate.DefaultConfig()
	cfg.Token.Secret = []byte("loadtest-32-byte-hmac-secret!!!!")
	cfg.Token.TTL = 24 * time.Hour
	cfg.Ledger.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true

	gate, err := sessiongate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithSubjectProvider(provider).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gate build failed: %v\n", err)
		os.Exit(1)
	}
	defer gate.Close()

	states := make([]credentialState, *subjects)
	fmt.Printf("issuing %d credentials...\n", *subjects)
	startSeed := time.Now()
	for i := 0; i < *subjects; i++ {
		subjectID := fmt.Sprintf("subject-%d", i)
		credential, err := gate.Issue(ctx, subjectID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = credentialState{subjectID: subjectID, credential: credential}
	}
	fmt.Printf("issued in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runAuthenticatePhase(ctx, gate, states, *ops, *concurrency)
	revokeStats := runRevokePhase(ctx, gate, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("revoke", revokeStats)

	snapshot := gate.MetricsSnapshot()
	fmt.Printf("admitted=%d revoked_logout=%d rejected_revoked=%d\n",
		snapshot.Counters[sessiongate.MetricAdmitted],
		snapshot.Counters[sessiongate.MetricRevokedLogout],
		snapshot.Counters[sessiongate.MetricRejectedRevoked],
	)
}

func runAuthenticatePhase(ctx context.Context, gate *sessiongate.Gate, states []credentialState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				state := &states[idx]

				state.mu.Lock()
				credential := state.credential
				state.mu.Unlock()

				t0 := time.Now()
				_, err := gate.Authenticate(ctx, credential)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runRevokePhase logs out the current credential for a random subject and
// immediately issues a replacement so the pool stays fully valid.
func runRevokePhase(ctx context.Context, gate *sessiongate.Gate, states []credentialState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				state := &states[idx]

				state.mu.Lock()
				t0 := time.Now()
				err := gate.Logout(ctx, state.credential)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else if next, issueErr := gate.Issue(ctx, state.subjectID); issueErr == nil {
					state.credential = next
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// seededProvider is a read-only provider; the subject set is fixed before
// the workers start, so lookups take no locks.
type seededProvider struct {
	subjects map[string]sessiongate.Subject
}

func newSeededProvider(n int) *seededProvider {
	p := &seededProvider{subjects: make(map[string]sessiongate.Subject, n)}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("subject-%d", i)
		p.subjects[id] = sessiongate.Subject{
			SubjectID:    id,
			Identifier:   fmt.Sprintf("subject-%d@example.com", i),
			DisplayName:  id,
			Organization: "loadtest",
		}
	}
	return p
}

func (p *seededProvider) GetSubjectByID(_ context.Context, subjectID string) (sessiongate.Subject, error) {
	s, ok := p.subjects[subjectID]
	if !ok {
		return sessiongate.Subject{}, sessiongate.ErrSubjectNotFound
	}
	return s, nil
}
