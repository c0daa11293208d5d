package models

import (
	"strings"
	"time"
)

// Record is one harvested followed account.
// IdentityKey is set once when the record is created and never changes.
// EncodedResource is only written by the enrichment stage.
type Record struct {
	IdentityKey      string   `json:"identity_key"`
	DisplayName      string   `json:"display_name"`
	ResourceURL      string   `json:"resource_url"`
	EncodedResource  string   `json:"encoded_resource,omitempty"`
	DescriptionLines []string `json:"description_lines,omitempty"`
}

// SearchText is the lowercase concatenation used by the in-document filter
func (r *Record) SearchText() string {
	parts := make([]string, 0, 2+len(r.DescriptionLines))
	if r.DisplayName != "" {
		parts = append(parts, r.DisplayName)
	}
	for _, line := range r.DescriptionLines {
		if line != "" {
			parts = append(parts, line)
		}
	}
	if r.IdentityKey != "" {
		parts = append(parts, r.IdentityKey)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Candidate is one card as seen on the live surface during a single sample.
type Candidate struct {
	Href         string
	DisplayName  string
	ResourceURL  string
	Descriptions []string
}

// Phase identifies which part of a run an observation belongs to
type Phase string

const (
	PhaseScanning   Phase = "scanning"
	PhaseScanDone   Phase = "scan_done"
	PhaseEnriching  Phase = "enriching"
	PhaseSkipEnrich Phase = "skip_enrich"
	PhaseRendering  Phase = "rendering"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Observation is a progress event delivered to status observers.
type Observation struct {
	Phase   Phase
	Message string

	// Harvest progress
	Count int
	Limit int
	Tick  int
	Stall int

	// Enrichment progress, Index is 1-based
	Index int
	Total int
}

// StopReason explains why harvesting ended
type StopReason string

const (
	StopLimit  StopReason = "limit"
	StopStall  StopReason = "stall"
	StopBudget StopReason = "budget"
)

// RunSummary describes a finished export
type RunSummary struct {
	Path          string        `json:"path"`
	FileName      string        `json:"file_name"`
	Count         int           `json:"count"`
	Limit         int           `json:"limit"`
	Ticks         int           `json:"ticks"`
	Reason        StopReason    `json:"reason"`
	WithResources bool          `json:"with_resources"`
	Enriched      int           `json:"enriched"`
	Duration      time.Duration `json:"duration"`
}
