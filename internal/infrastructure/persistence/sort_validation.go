package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// LedgerEntrySortFields contains allowed sort fields for ledger entries
var LedgerEntrySortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"occurred_at": true,
	"posted_at":   true,
	"worker_id":   true,
	"direction":   true,
	"amount":      true,
	"source_type": true,
	"settled":     true,
}

// WorkerBalanceSortFields contains allowed sort fields for worker balances
var WorkerBalanceSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"worker_id":     true,
	"balance":       true,
	"writes_halted": true,
}

// TipGroupSortFields contains allowed sort fields for tip groups
var TipGroupSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"name":            true,
	"owner_worker_id": true,
	"split_mode":      true,
	"status":          true,
	"opened_at":       true,
	"closed_at":       true,
}

// TipOutRuleSortFields contains allowed sort fields for tip-out rules
var TipOutRuleSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"name":           true,
	"source_role":    true,
	"recipient_role": true,
	"basis":          true,
	"percent":        true,
	"effective_from": true,
	"effective_to":   true,
	"enabled":        true,
}

// AnomalySortFields contains allowed sort fields for allocation anomalies
var AnomalySortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"group_id":          true,
	"payment_reference": true,
	"amount":            true,
	"reason":            true,
	"resolved":          true,
}
