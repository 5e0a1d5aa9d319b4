// @title         intent-gate API
// @version       1.0
// @description   Issues plan-bound intent tokens and gates tool execution on them.
// @BasePath      /api/v1
// @schemes       http
// @host          localhost:8081
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/vbncursed/vkr/intent-gate/docs"
	"github.com/vbncursed/vkr/intent-gate/internal/audit"
	icfg "github.com/vbncursed/vkr/intent-gate/internal/config"
	"github.com/vbncursed/vkr/intent-gate/internal/crypto"
	ih "github.com/vbncursed/vkr/intent-gate/internal/http"
	"github.com/vbncursed/vkr/intent-gate/internal/observability"
	"github.com/vbncursed/vkr/intent-gate/internal/policy"
	"github.com/vbncursed/vkr/intent-gate/internal/remote"
	"github.com/vbncursed/vkr/intent-gate/internal/replay"
	"github.com/vbncursed/vkr/intent-gate/internal/repo"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
	"github.com/vbncursed/vkr/intent-gate/internal/tools"
)

// store is what a persistent backend provides.
type store interface {
	service.IntentRepository
	service.ReplayStore
	service.AuditSink
	service.AuditReader
	Ping(ctx context.Context) error
	PurgeConsumed(ctx context.Context) (int64, error)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}

func main() {
	cfg := icfg.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secret, err := crypto.ParseSecret(cfg.Secret)
	if err != nil {
		fatal("INTENT_SECRET", err)
	}
	key, err := crypto.NewKey(secret)
	if err != nil {
		fatal("INTENT_SECRET", err)
	}
	limits, err := icfg.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		fatal("policy", err)
	}
	guard, err := policy.New(limits)
	if err != nil {
		fatal("policy", err)
	}
	log.Info("policy loaded", "rule_set_version", guard.RuleSetVersion(), "digest", guard.Digest(),
		"max_transaction_amount", limits.MaxTransactionAmount)

	ready := map[string]ih.Pinger{}
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fatal("store", err)
	}
	defer closeStore()

	var (
		ledger service.IntentRepository
		reader service.AuditReader
		sinks  audit.Multi
	)
	if st != nil {
		ready["store"] = st
		ledger, reader = st, st
		sinks = append(sinks, st)
	} else {
		ring := audit.NewRing(1000)
		reader = ring
		sinks = append(sinks, ring)
	}
	sinks = append(sinks, audit.NewWriter(os.Stderr))

	var replayStore service.ReplayStore
	switch {
	case cfg.ReplayBackend == icfg.ReplayRedis:
		rs := replay.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, 0)
		defer func() { _ = rs.Close() }()
		ready["redis"] = rs
		replayStore = rs
	case cfg.ReplayBackend == icfg.ReplayStore && st != nil:
		replayStore = st
		go purgeLoop(ctx, st, log)
	default:
		replayStore = replay.NewMemoryStore()
	}

	metrics := observability.NewProvider()
	defer func() { _ = metrics.Shutdown(context.Background()) }()
	gm, err := observability.NewGateMetrics(metrics.Meter())
	if err != nil {
		fatal("metrics", err)
	}

	verifier := service.NewVerifier(key, service.RealClock{})
	var signer service.Signer = service.NewLocalHMACSigner(key)
	if cfg.IssuerURL != "" {
		rs, err := remote.NewSigner(cfg.IssuerURL, verifier,
			remote.WithTimeout(cfg.IssuerTimeout), remote.WithLogger(log))
		if err != nil {
			fatal("issuer", err)
		}
		signer = rs
		log.Info("using remote issuer", "url", cfg.IssuerURL)
	}

	issuerOpts := []service.IssuerOption{service.WithTTL(cfg.TokenTTL, cfg.MaxTTL), service.WithIssuerLogger(log)}
	if ledger != nil {
		issuerOpts = append(issuerOpts, service.WithLedger(ledger))
	}
	issuer := service.NewIssuer(signer, guard, issuerOpts...)
	gate := service.NewGate(verifier, guard,
		service.WithReplayStore(replayStore),
		service.WithAudit(sinks),
		service.WithMetrics(gm),
		service.WithGateLogger(log),
	)

	registry := tools.NewRegistry(gate, log)
	registry.Register(tools.NewBookFlight(tools.LocalProvider{}, limits.Currency))

	e := ih.Router(ih.Deps{
		Issuer:       issuer,
		Verifier:     verifier,
		Tools:        registry,
		Audit:        reader,
		Metrics:      metrics,
		PolicyDigest: guard.Digest(),
		Ready:        ready,
		Log:          log,
	}, cfg)

	srv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("intent-gate listening", "bind", cfg.Bind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
}

// openStore returns nil for the memory backend.
func openStore(ctx context.Context, cfg icfg.Config) (store, func(), error) {
	switch cfg.Store {
	case icfg.StoreSQLite:
		s, err := repo.OpenLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case icfg.StoreMemory:
		return nil, func() {}, nil
	}
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo.NewStore(pool), pool.Close, nil
}

func purgeLoop(ctx context.Context, st store, log *slog.Logger) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := st.PurgeConsumed(ctx)
			if err != nil {
				log.Warn("purge consumed tokens", "err", err)
				continue
			}
			if n > 0 {
				log.Debug("purged consumed tokens", "count", n)
			}
		}
	}
}
