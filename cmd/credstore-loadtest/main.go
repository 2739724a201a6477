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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rpgjournals/credstore"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 50000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt:", "redis key prefix")
	)
	flag.Parse()

	log := logrus.New()
	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		log.Error("sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			log.WithError(err).Fatal("start miniredis")
		}
		addr = mr.Addr()
		cleanup = mr.Close
		log.WithField("addr", addr).Info("using miniredis")
	} else {
		cleanup = func() {}
		log.WithField("addr", addr).Info("using redis")
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	cfg := credstore.DefaultConfig()
	cfg.Store.RedisPrefix = *prefix
	engine, err := credstore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(log).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		log.WithError(err).Fatal("build engine")
	}
	defer engine.Close()
	store := engine.Store()

	tokens := make([]string, *sessions)
	log.WithField("sessions", *sessions).Info("seeding")
	startSeed := time.Now()
	for i := range tokens {
		tok, err := store.CreateSession(ctx, credstore.SessionData{
			UserID: fmt.Sprintf("u-%d", i),
			Email:  fmt.Sprintf("user%d@loadtest.invalid", i),
			Name:   "Load Test",
			Role:   string(credstore.RoleAuthor),
		})
		if err != nil {
			log.WithError(err).Fatal("seed session")
		}
		tokens[i] = tok
	}
	log.WithField("elapsed", time.Since(startSeed).Round(time.Millisecond)).Info("seeded")

	lookup := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		data, err := store.GetSession(ctx, tokens[r.Intn(len(tokens))])
		if err == nil && data == nil {
			return fmt.Errorf("seeded session missing")
		}
		return err
	})

	// Each op stores a code and immediately consumes it; a false match is a
	// lost update between concurrent writers of the same email.
	consume := runPhase(*ops, *concurrency, func(r *rand.Rand, i int) error {
		email := fmt.Sprintf("code%d@loadtest.invalid", i)
		code := fmt.Sprintf("%06d", r.Intn(1000000))
		if err := store.StoreVerificationCode(ctx, email, code); err != nil {
			return err
		}
		ok, err := store.VerifyCode(ctx, email, code)
		if err == nil && !ok {
			return fmt.Errorf("code not consumed")
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("session_lookup", lookup)
	printStats("code_store_consume", consume)

	snap := engine.MetricsSnapshot()
	fmt.Printf("backend_errors=%d store_latency_buckets=%v\n",
		snap.Counters[credstore.MetricBackendError],
		snap.Histograms[credstore.MetricStoreLatency])
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
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
				t0 := time.Now()
				err := op(r, i)
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
	return computeStats(time.Since(start), latencies, failures)
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
	return samples[(len(samples)-1)*p/100]
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
