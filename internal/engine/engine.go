package engine

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/leakgate/leakgate/internal/detectors"
	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxMatches caps findings per (file, detector) invocation.
const DefaultMaxMatches = 100

// Config controls orchestration. Zero values select defaults.
type Config struct {
	Threads    int
	MaxMatches int
}

// File is one (path, content) pair handed to the orchestrator. A non-nil Err
// marks a file the source could not read.
type File struct {
	Path string
	Data []byte
	Err  error
}

// SoftError records a recoverable problem. It never aborts a scan.
type SoftError struct {
	Path     string `json:"path"`
	Detector string `json:"detector,omitempty"`
	Message  string `json:"message"`
}

func (e SoftError) Error() string {
	if e.Detector != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Detector, e.Message)
	}
	return e.Path + ": " + e.Message
}

// Truncation notes a (file, detector) pair that hit the match cap.
type Truncation struct {
	Path     string `json:"path"`
	Detector string `json:"detector"`
	Limit    int    `json:"limit"`
}

// Result contains deduplicated findings and basic scan statistics.
type Result struct {
	Findings     []types.Finding
	FilesScanned int
	SoftErrors   []SoftError
	Truncated    []Truncation
	Duration     time.Duration
	// Canceled is set when the context ended before every file was submitted.
	Canceled bool
}

// DetectorSource supplies the detectors to run, in tie-break order.
type DetectorSource interface {
	All() []detectors.Detector
}

// Orchestrator runs every detector over every file.
type Orchestrator struct {
	detectors []detectors.Detector
	threads   int
	maxMatch  int
}

// New snapshots the detectors from src; later registrations are not seen.
func New(src DetectorSource, cfg Config) *Orchestrator {
	mm := cfg.MaxMatches
	if mm <= 0 {
		mm = DefaultMaxMatches
	}
	return &Orchestrator{
		detectors: src.All(),
		threads:   workerCount(cfg.Threads),
		maxMatch:  mm,
	}
}

func workerCount(threads int) int {
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads < 1 {
		threads = 1
	}
	if threads > 32 {
		threads = 32
	}
	return threads
}

type fileResult struct {
	done      bool
	scanned   bool
	perDet    [][]types.Finding
	soft      []SoftError
	truncated []Truncation
}

// Scan runs the detectors over files and deduplicates by (path, line, kind,
// match), keeping the first occurrence in (detector order, file order).
// After ctx is done no further file is started; files already running finish
// and their findings are kept. The returned error is ctx.Err() in that case.
func (o *Orchestrator) Scan(ctx context.Context, files []File) (Result, error) {
	start := time.Now()
	results := make([]fileResult, len(files))

	var g errgroup.Group
	g.SetLimit(o.threads)
	canceled := false
	for i := range files {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		g.Go(func() error {
			// g.Go may have blocked on a full pool while ctx was canceled
			if ctx.Err() != nil {
				return nil
			}
			results[i] = o.scanFile(files[i])
			return nil
		})
	}
	_ = g.Wait()
	if !canceled && ctx.Err() != nil {
		canceled = slices.ContainsFunc(results, func(r fileResult) bool { return !r.done })
	}

	res := Result{Canceled: canceled}
	for i := range results {
		r := &results[i]
		if !r.done {
			continue
		}
		if r.scanned {
			res.FilesScanned++
		}
		res.SoftErrors = append(res.SoftErrors, r.soft...)
		res.Truncated = append(res.Truncated, r.truncated...)
	}
	res.Findings = merge(results, len(o.detectors))
	res.Duration = time.Since(start)
	if canceled {
		log.Infof("scan canceled after %d of %d files", res.FilesScanned, len(files))
		return res, ctx.Err()
	}
	return res, nil
}

func (o *Orchestrator) scanFile(f File) fileResult {
	r := fileResult{done: true}
	if f.Err != nil {
		log.Debugf("skipping unreadable file %s: %v", f.Path, f.Err)
		r.soft = append(r.soft, SoftError{Path: f.Path, Message: "unreadable: " + f.Err.Error()})
		return r
	}
	if !utf8.Valid(f.Data) {
		log.Debugf("skipping undecodable file %s", f.Path)
		r.soft = append(r.soft, SoftError{Path: f.Path, Message: "not valid UTF-8 text"})
		return r
	}
	r.scanned = true
	text := string(f.Data)
	r.perDet = make([][]types.Finding, len(o.detectors))
	for di, d := range o.detectors {
		out, capped, err := o.runDetector(d, f.Path, text)
		if err != nil {
			log.WithFields(map[string]any{"detector": d.Name(), "path": f.Path}).Warnf("detector failed: %v", err)
			r.soft = append(r.soft, SoftError{Path: f.Path, Detector: d.Name(), Message: err.Error()})
			continue
		}
		if capped {
			log.Debugf("%s: %s hit the %d match cap", f.Path, d.Name(), o.maxMatch)
			r.truncated = append(r.truncated, Truncation{Path: f.Path, Detector: d.Name(), Limit: o.maxMatch})
		}
		r.perDet[di] = out
	}
	return r
}

// runDetector drains at most maxMatch findings. A panic discards whatever the
// detector produced for this file.
func (o *Orchestrator) runDetector(d detectors.Detector, path, text string) (out []types.Finding, capped bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, capped = nil, false
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	for f := range d.Detect(path, text) {
		if len(out) == o.maxMatch {
			capped = true
			break
		}
		f.Path = path
		if f.Detector == "" {
			f.Detector = d.Name()
		}
		out = append(out, f)
	}
	return out, capped, nil
}

func merge(results []fileResult, nDetectors int) []types.Finding {
	seen := make(map[types.Key]struct{})
	out := []types.Finding{}
	for di := 0; di < nDetectors; di++ {
		for fi := range results {
			if results[fi].perDet == nil {
				continue
			}
			for _, f := range results[fi].perDet[di] {
				k := f.Key()
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, f)
			}
		}
	}
	return out
}
