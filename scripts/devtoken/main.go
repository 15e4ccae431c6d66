package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	"github.com/noah-isme/jobfair-forms-api/internal/service"
	"github.com/noah-isme/jobfair-forms-api/pkg/config"
)

// devtoken mints a bearer token signed with the configured JWT secret for local testing.
func main() {
	var (
		userID = flag.String("user", "organizer-1", "subject of the token")
		role   = flag.String("role", string(models.RoleOrganizer), "ADMIN, ORGANIZER or COMPANY")
		email  = flag.String("email", "", "email claim")
		name   = flag.String("name", "", "full name claim")
		ttl    = flag.Duration("ttl", 0, "override token lifetime")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to mint tokens in production")
	}

	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}
	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: expiry,
	})

	token, expiresAt, err := tokens.Issue(*userID, models.UserRole(strings.ToUpper(*role)), *email, *name)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
