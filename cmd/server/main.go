package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/projectNEWM/newm-server-sub005/internal/abuse"
	abusepolicy "github.com/projectNEWM/newm-server-sub005/internal/abuse/policy"
	"github.com/projectNEWM/newm-server-sub005/internal/abuse/risk"
	"github.com/projectNEWM/newm-server-sub005/internal/audit"
	auditrepo "github.com/projectNEWM/newm-server-sub005/internal/audit/repository"
	authservice "github.com/projectNEWM/newm-server-sub005/internal/auth/service"
	"github.com/projectNEWM/newm-server-sub005/internal/config"
	"github.com/projectNEWM/newm-server-sub005/internal/db"
	identityrepo "github.com/projectNEWM/newm-server-sub005/internal/identity/repository"
	identityservice "github.com/projectNEWM/newm-server-sub005/internal/identity/service"
	"github.com/projectNEWM/newm-server-sub005/internal/nonce"
	noncerepo "github.com/projectNEWM/newm-server-sub005/internal/nonce/repository"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth"
	"github.com/projectNEWM/newm-server-sub005/internal/oauth/providers"
	"github.com/projectNEWM/newm-server-sub005/internal/security"
	"github.com/projectNEWM/newm-server-sub005/internal/server"
	"github.com/projectNEWM/newm-server-sub005/internal/server/interceptors"
	"github.com/projectNEWM/newm-server-sub005/internal/signature"
	"github.com/projectNEWM/newm-server-sub005/internal/telemetry"
	"github.com/projectNEWM/newm-server-sub005/internal/telemetry/otel"
	"github.com/projectNEWM/newm-server-sub005/internal/twofactor"
	"github.com/projectNEWM/newm-server-sub005/internal/twofactor/email"
	twofactorrepo "github.com/projectNEWM/newm-server-sub005/internal/twofactor/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	otelProviders, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "newm-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	otelProviders.SetGlobal()
	emitter := otel.NewEventEmitter(otelProviders.LoggerProvider)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	hasher := security.NewHasher(cfg.BcryptCost)
	directory := identityservice.NewDirectory(identityrepo.NewPostgresRepository(sqlDB), hasher)

	ledger := nonce.NewLedger(noncerepo.NewPostgresRepository(sqlDB), cfg.SkewTolerance(), nil)
	verifier := signature.NewVerifier(ledger, directory)

	var sender twofactor.Sender
	if cfg.MailerURL != "" {
		sender = email.NewMailer(cfg.MailerAPIKey, cfg.MailerURL, cfg.MailerFrom)
	}
	codes := twofactor.NewManager(
		twofactorrepo.NewPostgresRepository(sqlDB),
		sender,
		cfg.CodeTTL(),
		cfg.TwoFactorMaxAttempts,
		cfg.TwoFactorCodeLength,
		nil,
	)

	resolver := oauth.NewResolver(
		providers.NewGoogleValidator(cfg.GoogleUserInfoURL, nil),
		providers.NewFacebookValidator(cfg.FacebookUserInfoURL, nil),
		providers.NewLinkedInValidator(cfg.LinkedInUserInfoURL, nil),
		providers.NewAppleValidator(cfg.AppleIssuer, cfg.AppleAudience,
			providers.NewJWKSKeyfunc(providers.AppleJWKSURL, nil).Keyfunc),
	)

	whitelist, err := cfg.Whitelist()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	evaluator, err := abusepolicy.NewOPAEvaluator()
	if err != nil {
		log.Fatalf("abuse policy: %v", err)
	}
	var assessor abuse.Assessor
	if cfg.RiskAssessmentURL != "" {
		assessor = risk.NewClient(cfg.RiskAPIKey, cfg.RiskAssessmentURL)
	}
	gate := abuse.NewGate(abuse.Config{
		Whitelist:          gateWhitelist(whitelist),
		Thresholds:         cfg.Thresholds(),
		AllowOnUnavailable: cfg.RiskAllowOnUnavailable,
	}, assessor, evaluator)

	decisions := audit.NewLogger(auditrepo.NewPostgresRepository(sqlDB), interceptors.ClientIP)

	orchestrator := authservice.NewOrchestrator(verifier, resolver, directory, codes, gate, decisions)

	srv := server.New(server.Deps{
		Orchestrator: orchestrator,
		Tokens:       tokens,
		Emitter:      emitter,
		DB:           sqlDB,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := srv.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down gRPC server...")
	srv.GracefulStop()
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := otelProviders.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("gRPC server stopped")
}

func gateWhitelist(entries []config.WhitelistEntry) []abuse.WhitelistEntry {
	out := make([]abuse.WhitelistEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, abuse.WhitelistEntry{Prefix: e.Prefix, Description: e.Description})
	}
	return out
}
