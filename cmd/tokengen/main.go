// Package main provides a CLI tool for generating admin bearer tokens for the
// onboard API. These tokens use the dev signing key and will NOT work in
// production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"onboard/internal/admin/token"
	id "onboard/pkg/domain"
)

const (
	// Dev signing key - matches config.go when ADMIN_JWT_SIGNING_KEY is not set
	devSigningKey = "dev-admin-secret-change-in-production"

	defaultIssuer   = "onboard"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresAt time.Time         `json:"expires_at"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)
	adminIdentity := adminCmd.String("identity", "", "Admin wallet identity (0x-prefixed, 20 bytes)")
	adminKey := adminCmd.String("key", "", "Signing key. Defaults to ADMIN_JWT_SIGNING_KEY, then the dev key.")
	adminEnv := adminCmd.String("env", "dev", "Environment claim")
	adminTTL := adminCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "admin":
		_ = adminCmd.Parse(os.Args[2:])
		generateAdminToken(*adminIdentity, *adminKey, *adminEnv, *adminTTL, *adminJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate admin tokens for the onboard API

WARNING: Without -key or ADMIN_JWT_SIGNING_KEY these tokens use the dev
         signing key. Only use them for local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  admin     Generate an admin bearer token (JWT)

Examples:
  # Token for the bootstrapped super admin
  tokengen admin -identity 0xd3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3

  # Short-lived token, JSON output
  tokengen admin -identity 0xd1... -ttl 5m -json

The token only authenticates. What the holder may do is decided by the
admin record stored for the identity.`)
}

func generateAdminToken(rawIdentity, key, env string, ttl time.Duration, jsonOutput bool) {
	identity, err := id.ParseIdentity(rawIdentity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid identity %q: %v\n", rawIdentity, err)
		os.Exit(1)
	}

	keyType := "flag"
	if key == "" {
		key = os.Getenv("ADMIN_JWT_SIGNING_KEY")
		keyType = "env"
	}
	if key == "" {
		key = devSigningKey
		keyType = "dev"
	}

	svc, err := token.New(key, defaultIssuer, ttl, token.WithEnv(env))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring signer: %v\n", err)
		os.Exit(1)
	}
	signed, expiresAt, err := svc.Issue(identity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     signed,
			Type:      "admin_token",
			ExpiresAt: expiresAt,
			Claims: map[string]any{
				"sub": identity.String(),
				"iss": defaultIssuer,
				"aud": token.DefaultAudience,
				"env": env,
			},
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}

	fmt.Println("Admin Token (JWT)")
	fmt.Println("=================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Identity:    %s\n", identity)
	fmt.Printf("Environment: %s\n", env)
	fmt.Printf("Expires At:  %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/admin/requests")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
