// seed inserts development sample data for local testing. Run via ./scripts/seed.sh.
// Idempotent: skips inserts if the dev identity (dev@newm.io) already exists.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"github.com/projectNEWM/newm-server-sub005/internal/config"
	"github.com/projectNEWM/newm-server-sub005/internal/db"
	identityrepo "github.com/projectNEWM/newm-server-sub005/internal/identity/repository"
	identityservice "github.com/projectNEWM/newm-server-sub005/internal/identity/service"
	"github.com/projectNEWM/newm-server-sub005/internal/security"
	"github.com/projectNEWM/newm-server-sub005/internal/signature"
)

const (
	devEmail    = "dev@newm.io"
	devPassword = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	repo := identityrepo.NewPostgresRepository(conn)

	existing, err := repo.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", devEmail)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	directory := identityservice.NewDirectory(repo, hasher)

	identity, err := directory.Register(ctx, devEmail, devPassword, "Dev", "User")
	if err != nil {
		log.Fatalf("register dev identity: %v", err)
	}

	// Bind a throwaway signing key so signed-request flows work out of the box.
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("generate signing key: %v", err)
	}
	if _, err := directory.BindSigningKey(ctx, identity.ID, signature.AlgEd25519, pub); err != nil {
		log.Fatalf("bind signing key: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", devEmail, devPassword)
	fmt.Printf("Dev signing key (ed25519, base64): public=%s private=%s\n",
		base64.StdEncoding.EncodeToString(pub),
		base64.StdEncoding.EncodeToString(priv))
}
