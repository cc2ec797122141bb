package config

import (
	"os"
	"strings"
)

// StrictLedgerImmutability enables accounting-grade guardrails:
// recorded payments and handovers can never be edited or deleted through the API,
// even by platform admins. Corrections must be made with compensating entries.
//
// Set via env:
// - STRICT_LEDGER_IMMUTABLE=true
func StrictLedgerImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_LEDGER_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
