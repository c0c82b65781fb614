package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/wonny/crmgeek/backend/internal/apperr"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// ═══════════════════════════════════════════════════════════

// printJSON writes v to stdout as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError prints a typed failure with its diagnostics to stderr
func printError(err error) {
	e, ok := apperr.As(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "❌ [%s] %s\n", e.Kind, e.Message)
	if e.Detail != "" {
		fmt.Fprintln(os.Stderr, "───────────────────────────────────────────────────────────")
		fmt.Fprintln(os.Stderr, e.Detail)
	}
}

// maskPassword hides the password of a database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
