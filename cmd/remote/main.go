// Command remote runs the remote authority.
//
//	remote [-c file] [-a addr] [-m memory|postgres] [-d dsn] [-s secret] ...
//	remote token -s secret -sub MOSIP-1 [-role patient] [-ttl 24h]
//
// The token form prints a bearer token signed with the configured secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/vaxtrace/vaxsync/internal/flagx"
	"github.com/vaxtrace/vaxsync/internal/logging"
	"github.com/vaxtrace/vaxsync/internal/server"
	"github.com/vaxtrace/vaxsync/internal/server/auth"
	"github.com/vaxtrace/vaxsync/internal/server/config"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "token" {
		if err := printToken(args[1:], os.Stdout); err != nil {
			log.Fatalf("token: %v", err)
		}
		return
	}

	cfg, err := config.Load(args)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func printToken(args []string, w io.Writer) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if cfg.SecretKey == "" {
		return fmt.Errorf("a secret key is required (-s)")
	}

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sub := fs.String("sub", "", "token subject (MOSIP id)")
	role := fs.String("role", "patient", "role claim")
	ttl := fs.Duration("ttl", cfg.TokenValidity, "token lifetime")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-sub", "-role", "-ttl"})); err != nil {
		return err
	}
	if *sub == "" {
		return fmt.Errorf("-sub is required")
	}
	if *ttl <= 0 {
		*ttl = time.Hour
	}

	tok, err := auth.GenerateToken(*sub, *role, []byte(cfg.SecretKey), *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}
