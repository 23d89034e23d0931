package models

import (
	"fmt"
	"strings"
)

// TransactionStatus is the lifecycle state of a transaction
type TransactionStatus string

// Transaction statuses
const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Display tones used by the admin detail view
const (
	ToneSuccess = "success"
	ToneWarning = "warning"
	ToneDanger  = "danger"
	ToneNeutral = "neutral"
)

// Older rows were written by hand with these spellings.
var legacyStatusSynonyms = map[string]TransactionStatus{
	"success":    StatusConfirmed,
	"hoàn thành": StatusConfirmed,
	"xác nhận":   StatusConfirmed,
	"thành công": StatusConfirmed,
	"done":       StatusConfirmed,
	"chờ":        StatusPending,
	"đang chờ":   StatusPending,
	"đợi duyệt":  StatusPending,
	"hủy":        StatusCancelled,
	"dừng lại":   StatusCancelled,
	"failed":     StatusCancelled,
	"error":      StatusCancelled,
}

// ParseStatus accepts only the canonical status values
func ParseStatus(s string) (TransactionStatus, error) {
	switch TransactionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("invalid transaction status: %q", s)
}

// NormalizeStatus maps a stored status, including legacy synonyms, onto the canonical set
func NormalizeStatus(raw string) (TransactionStatus, bool) {
	if st, err := ParseStatus(raw); err == nil {
		return st, true
	}
	st, ok := legacyStatusSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return st, ok
}

// Canonical returns the normalized status, or the raw value when it matches nothing
func (s TransactionStatus) Canonical() TransactionStatus {
	if st, ok := NormalizeStatus(string(s)); ok {
		return st
	}
	return s
}

// Tone returns the display tone for a stored status
func (s TransactionStatus) Tone() string {
	switch s.Canonical() {
	case StatusConfirmed:
		return ToneSuccess
	case StatusPending:
		return ToneWarning
	case StatusCancelled:
		return ToneDanger
	}
	return ToneNeutral
}

// Priority orders the admin list: pending first, then confirmed, then cancelled
func (s TransactionStatus) Priority() int {
	switch s.Canonical() {
	case StatusPending:
		return 1
	case StatusConfirmed:
		return 2
	case StatusCancelled:
		return 3
	}
	return 4
}

// CanTransition reports whether an admin may move a transaction from s to next
func (s TransactionStatus) CanTransition(next TransactionStatus) bool {
	return s == StatusPending && (next == StatusConfirmed || next == StatusCancelled)
}
