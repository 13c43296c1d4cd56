package validate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	ttlcache "github.com/jellydator/ttlcache/v3"
	"github.com/leakgate/leakgate/internal/log"
	"github.com/leakgate/leakgate/internal/redact"
	"github.com/leakgate/leakgate/internal/types"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Engine defaults.
const (
	DefaultQPS         = 2.0
	DefaultConcurrency = 4
	DefaultTimeout     = 10 * time.Second
	DefaultCacheTTL    = 10 * time.Minute
)

// Reasons recorded when the engine, not the validator, decides the outcome.
const (
	ReasonNetworkDisabled = "network validation disabled"
	ReasonCanceled        = "canceled before validation"
	ReasonPanic           = "validator panicked"
)

// ErrDuplicateValidator is returned when two validators share a name.
var ErrDuplicateValidator = errors.New("duplicate validator")

// Options configures an Engine. Zero values select defaults; a negative
// CacheTTL disables caching.
type Options struct {
	AllowNetwork bool
	GlobalQPS    float64
	Concurrency  int
	Timeout      time.Duration
	CacheTTL     time.Duration
	Now          func() time.Time
}

// Engine dispatches findings to validators. One limiter instance is shared
// by every network validator the engine runs.
type Engine struct {
	validators []Validator
	opts       Options
	limiter    *rate.Limiter
	sem        *semaphore.Weighted
	cache      *ttlcache.Cache[string, Outcome]
}

// NewEngine builds an engine over vs, which are consulted in order.
func NewEngine(opts Options, vs ...Validator) (*Engine, error) {
	seen := map[string]bool{}
	for _, v := range vs {
		if seen[v.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateValidator, v.Name())
		}
		seen[v.Name()] = true
	}
	if opts.GlobalQPS <= 0 {
		opts.GlobalQPS = DefaultQPS
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Engine{
		validators: vs,
		opts:       opts,
		// burst 1: never more than one call inside any 1/qps window
		limiter: rate.NewLimiter(rate.Limit(opts.GlobalQPS), 1),
		sem:     semaphore.NewWeighted(int64(opts.Concurrency)),
	}
	if opts.CacheTTL > 0 {
		e.cache = ttlcache.New[string, Outcome](
			ttlcache.WithTTL[string, Outcome](opts.CacheTTL),
			ttlcache.WithDisableTouchOnHit[string, Outcome](),
		)
	}
	return e, nil
}

// Validators returns the configured validators in order.
func (e *Engine) Validators() []Validator {
	return append([]Validator(nil), e.validators...)
}

type job struct {
	fi, slot int
	v        Validator
}

// Validate attaches results to findings in place, one per applicable
// validator in validator order. Once ctx is done no further validator is
// started; calls already running complete and their results are kept. In
// that case the findings not reached carry no results and ctx.Err() is
// returned.
func (e *Engine) Validate(ctx context.Context, findings []types.Finding) error {
	slots := make([][]*types.ValidationResult, len(findings))
	var jobs []job
	for fi := range findings {
		for _, v := range e.validators {
			if !applies(v, findings[fi].Kind) {
				continue
			}
			jobs = append(jobs, job{fi: fi, slot: len(slots[fi]), v: v})
			slots[fi] = append(slots[fi], nil)
		}
	}

	var wg sync.WaitGroup
	var stopErr error
	for _, j := range jobs {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			stopErr = err
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer e.sem.Release(1)
			r := e.run(ctx, j.v, findings[j.fi])
			slots[j.fi][j.slot] = &r
		}()
	}
	wg.Wait()

	for fi := range findings {
		for _, r := range slots[fi] {
			if r != nil {
				findings[fi].Validations = append(findings[fi].Validations, *r)
			}
		}
	}
	if stopErr != nil {
		log.Infof("validation stopped: %v", stopErr)
	}
	return stopErr
}

// run produces one redacted result. It never returns an error: every
// failure mode becomes an indeterminate result.
func (e *Engine) run(ctx context.Context, v Validator, f types.Finding) types.ValidationResult {
	out := e.outcome(ctx, v, f)
	switch out.State {
	case types.StateValid, types.StateInvalid, types.StateIndeterminate:
	default:
		out = indeterminate(fmt.Sprintf("validator returned unknown state %q", out.State))
	}
	return types.ValidationResult{
		State:         out.State,
		Evidence:      redact.Evidence(out.Evidence, f.Secret, f.Companion),
		Reason:        redact.Evidence(out.Reason, f.Secret, f.Companion),
		ValidatorName: v.Name(),
		Timestamp:     e.opts.Now().UTC(),
		ExpiresAt:     out.ExpiresAt,
	}
}

func (e *Engine) outcome(ctx context.Context, v Validator, f types.Finding) Outcome {
	// enforced here so a network validator body never runs while disabled
	if v.Network() && !e.opts.AllowNetwork {
		return indeterminate(ReasonNetworkDisabled)
	}
	key := cacheKey(v.Name(), f)
	if e.cache != nil {
		if it := e.cache.Get(key); it != nil {
			return it.Value()
		}
	}
	if v.Network() {
		start := time.Now()
		if err := e.limiter.Wait(ctx); err != nil {
			return indeterminate(ReasonCanceled)
		}
		if waited := time.Since(start); waited > time.Millisecond {
			log.Debugf("rate limiter delayed %s by %s", v.Name(), waited.Round(time.Millisecond))
		}
	} else if ctx.Err() != nil {
		return indeterminate(ReasonCanceled)
	}

	out, ok := e.call(ctx, v, f)
	if ok && e.cache != nil {
		e.cache.Set(key, out, ttlcache.DefaultTTL)
	}
	return out
}

type callResult struct {
	out      Outcome
	err      error
	panicked bool
}

// call runs the validator body under the per-call timeout. A call already
// started is not canceled by ctx; only the timeout bounds it.
func (e *Engine) call(ctx context.Context, v Validator, f types.Finding) (Outcome, bool) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.Timeout)
	defer cancel()
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- callResult{panicked: true, err: fmt.Errorf("%v", p)}
			}
		}()
		out, err := v.Validate(cctx, f)
		done <- callResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		switch {
		case r.panicked:
			log.Debugf("validator %s panicked", v.Name())
			return indeterminate(ReasonPanic), false
		case r.err != nil:
			log.Debugf("validator %s failed: %s", v.Name(), redact.Evidence(r.err.Error(), f.Secret, f.Companion))
			return indeterminate("validator error: " + r.err.Error()), false
		}
		return r.out, true
	case <-cctx.Done():
		log.Debugf("validator %s timed out after %s", v.Name(), e.opts.Timeout)
		return indeterminate("timed out after " + e.opts.Timeout.String()), false
	}
}

func cacheKey(validator string, f types.Finding) string {
	h := xxhash.New()
	_, _ = h.WriteString(f.Kind)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(f.Secret)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(f.Companion)
	return validator + ":" + strconv.FormatUint(h.Sum64(), 16)
}
