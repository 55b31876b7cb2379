// Command issuetoken prints a signed access token for the control API.
//
//	issuetoken -sub campaign-runner -scope calls:read,calls:write -ttl 1h
//
// It reads the same configuration as the API (CALLS_CONFIG, JWT_*), so the
// token verifies against a server started with that configuration.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"outbound-calls/internal/auth"
	"outbound-calls/internal/config"
)

func main() {
	sub := flag.String("sub", "", "token subject (client name)")
	scope := flag.String("scope", auth.ScopeCallsRead, "comma separated scopes")
	ttl := flag.Duration("ttl", 0, "token lifetime; 0 uses jwt.access_ttl")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		slog.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var scopes []string
	for _, s := range strings.Split(*scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}

	tok, err := m.Issue(time.Now(), *sub, scopes, *ttl)
	if err != nil {
		slog.Error("issue failed", "err", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
