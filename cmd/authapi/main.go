package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/paybackfitness/authapi/internal/authapi/app"
)

//	@title			Payback Fitness Auth API
//	@version		0.1.0
//	@description	Authentication and referral API backed by a Supabase-compatible identity provider

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the access token.

func main() {
	// Missing .env is fine: real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
