package model

import (
	"fmt"
	"time"
)

// EvidenceType classifies externally sourced facts. The set is closed:
// unknown tags are rejected with a validation error, never stored.
type EvidenceType string

const (
	EvidenceProfile EvidenceType = "profile" // Company profile (industry, size, description)
	EvidenceNews    EvidenceType = "news"    // Recent news snapshot
	EvidenceMarket  EvidenceType = "market"  // Market trends and competitors
)

// EvidenceTypes returns all recognized evidence types in a stable order.
func EvidenceTypes() []EvidenceType {
	return []EvidenceType{EvidenceProfile, EvidenceNews, EvidenceMarket}
}

// ParseEvidenceType validates a raw tag against the recognized set.
func ParseEvidenceType(raw string) (EvidenceType, error) {
	switch EvidenceType(raw) {
	case EvidenceProfile, EvidenceNews, EvidenceMarket:
		return EvidenceType(raw), nil
	}
	return "", Validationf("unknown evidence type %q (recognized: profile, news, market)", raw)
}

// EvidenceRecord is one fact bundle for an account. At most one record
// exists per (account, type) pair; a new collection replaces the prior
// record for that type.
type EvidenceRecord struct {
	ID          int64        `json:"id"`
	AccountID   int64        `json:"account_id"`
	Type        EvidenceType `json:"type"`
	Content     string       `json:"content"`
	SourceURL   string       `json:"source_url,omitempty"`
	CollectedAt time.Time    `json:"collected_at"`
}

// Stale reports whether the record is older than the given horizon.
func (r *EvidenceRecord) Stale(horizon time.Duration, now time.Time) bool {
	if horizon <= 0 {
		return false
	}
	return now.Sub(r.CollectedAt) > horizon
}

func (t EvidenceType) String() string { return string(t) }

// Describe returns a human-readable label for prompts and reports.
func (t EvidenceType) Describe() string {
	switch t {
	case EvidenceProfile:
		return "company profile"
	case EvidenceNews:
		return "recent news"
	case EvidenceMarket:
		return "market information"
	default:
		return fmt.Sprintf("evidence(%s)", string(t))
	}
}
