// Worker prunes expired authentication state on an interval: consumed and
// stale nonces outside the acceptance window, and expired two-factor
// challenges. Run one instance alongside the server; pruning is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/config"
	"github.com/projectNEWM/newm-server-sub005/internal/db"
	"github.com/projectNEWM/newm-server-sub005/internal/nonce"
	noncerepo "github.com/projectNEWM/newm-server-sub005/internal/nonce/repository"
	"github.com/projectNEWM/newm-server-sub005/internal/twofactor"
	twofactorrepo "github.com/projectNEWM/newm-server-sub005/internal/twofactor/repository"
)

func main() {
	interval := flag.Duration("interval", time.Minute, "How often to prune expired nonces and challenges")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	ledger := nonce.NewLedger(noncerepo.NewPostgresRepository(sqlDB), cfg.SkewTolerance(), nil)
	codes := twofactor.NewManager(
		twofactorrepo.NewPostgresRepository(sqlDB),
		nil,
		cfg.CodeTTL(),
		cfg.TwoFactorMaxAttempts,
		cfg.TwoFactorCodeLength,
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: pruning every %s", *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		pruneOnce(ctx, ledger, codes)
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
		}
	}
}

func pruneOnce(ctx context.Context, ledger *nonce.Ledger, codes *twofactor.Manager) {
	pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if n, err := ledger.Prune(pruneCtx); err != nil {
		log.Printf("worker: nonce prune failed: %v", err)
	} else if n > 0 {
		log.Printf("worker: pruned %d nonces", n)
	}
	if n, err := codes.Prune(pruneCtx); err != nil {
		log.Printf("worker: challenge prune failed: %v", err)
	} else if n > 0 {
		log.Printf("worker: pruned %d two-factor challenges", n)
	}
}
