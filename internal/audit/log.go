// Package audit appends one JSON line per scan to a local log. Records carry
// counts and redacted locations only, never raw values.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leakgate/leakgate/internal/policy"
	"github.com/leakgate/leakgate/internal/types"
)

// FileName is the log name used outside a git checkout.
const FileName = ".leakgate_audit.jsonl"

// ScanRecord is one line of the audit log.
type ScanRecord struct {
	Timestamp      time.Time              `json:"timestamp"`
	ScanID         string                 `json:"scan_id"`
	Root           string                 `json:"root"`
	Repo           string                 `json:"repo,omitempty"`
	Commit         string                 `json:"commit,omitempty"`
	Branch         string                 `json:"branch,omitempty"`
	TotalFindings  int                    `json:"total_findings"`
	NewFindings    int                    `json:"new_findings"`
	BaselinedCount int                    `json:"baselined_count"`
	CategoryCounts map[types.Category]int `json:"category_counts"`
	FilesScanned   int                    `json:"files_scanned"`
	SoftErrors     int                    `json:"soft_errors"`
	Duration       string                 `json:"duration"`
	Pass           bool                   `json:"pass"`
	Violations     int                    `json:"violations"`
	WaivedCount    int                    `json:"waived_count"`
	TopFindings    []FindingSummary       `json:"top_findings,omitempty"`
}

// FindingSummary is the redacted location of a finding.
type FindingSummary struct {
	Path      string         `json:"path"`
	Line      int            `json:"line"`
	Kind      string         `json:"kind"`
	Match     string         `json:"match"`
	RiskScore int            `json:"risk_score"`
	Category  types.Category `json:"category"`
}

// Log is an append-only JSONL file.
type Log struct {
	path string
}

// New places the log inside .git when root is a checkout so it never shows
// up as an untracked file.
func New(root string) *Log {
	gitDir := filepath.Join(root, ".git")
	p := filepath.Join(root, FileName)
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		p = filepath.Join(gitDir, "leakgate_audit.jsonl")
	}
	return &Log{path: p}
}

// Path returns the log file location.
func (a *Log) Path() string { return a.path }

// History returns records newest first. Corrupt lines are skipped.
func (a *Log) History() ([]ScanRecord, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var records []ScanRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var r ScanRecord
		if err := dec.Decode(&r); err != nil {
			break
		}
		records = append(records, r)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Append writes r as one line, assigning a scan ID if it has none.
func (a *Log) Append(r ScanRecord) (ScanRecord, error) {
	if r.ScanID == "" {
		r.ScanID = uuid.NewString()
	}
	// owner-only: the log holds finding locations
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return r, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(r); err != nil {
		return r, fmt.Errorf("write audit record: %w", err)
	}
	return r, nil
}

// Input gathers what NewRecord summarizes.
type Input struct {
	ScanID       string
	Root         string
	Repo         string
	Commit       string
	Branch       string
	All          []types.Finding
	New          []types.Finding
	FilesScanned int
	SoftErrors   int
	Duration     time.Duration
	Verdict      *policy.Verdict
	Now          time.Time
}

const topN = 10

// NewRecord builds a record from a finished scan.
func NewRecord(in Input) ScanRecord {
	counts := make(map[types.Category]int, len(types.Categories))
	for _, c := range types.Categories {
		counts[c] = 0
	}
	for _, f := range in.All {
		counts[f.Category]++
	}
	top := make([]FindingSummary, 0, topN)
	for i, f := range in.New {
		if i == topN {
			break
		}
		top = append(top, FindingSummary{Path: f.Path, Line: f.Line, Kind: f.Kind, Match: f.Match, RiskScore: f.RiskScore, Category: f.Category})
	}
	r := ScanRecord{
		Timestamp:      in.Now,
		ScanID:         in.ScanID,
		Root:           in.Root,
		Repo:           in.Repo,
		Commit:         in.Commit,
		Branch:         in.Branch,
		TotalFindings:  len(in.All),
		NewFindings:    len(in.New),
		BaselinedCount: len(in.All) - len(in.New),
		CategoryCounts: counts,
		FilesScanned:   in.FilesScanned,
		SoftErrors:     in.SoftErrors,
		Duration:       in.Duration.String(),
		Pass:           true,
		TopFindings:    top,
	}
	if in.Verdict != nil {
		r.Pass = in.Verdict.Pass
		r.Violations = len(in.Verdict.Violations)
		r.WaivedCount = len(in.Verdict.Waived)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return r
}
