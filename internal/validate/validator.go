// Package validate confirms or refutes findings. Local validators check
// format only; network validators call the credential's origin service and
// run only behind the engine's kill-switch and shared rate limiter.
package validate

import (
	"context"
	"slices"
	"time"

	"github.com/leakgate/leakgate/internal/types"
)

// Validator checks findings of the kinds it declares. Network reports
// whether Validate performs outbound calls; the engine never invokes a
// network validator unless network access is allowed.
type Validator interface {
	Name() string
	Kinds() []string
	Network() bool
	Validate(ctx context.Context, f types.Finding) (Outcome, error)
}

// Outcome is what a validator returns. Evidence is free text that the engine
// redacts before it is stored.
type Outcome struct {
	State     types.ValidationState
	Evidence  string
	Reason    string
	ExpiresAt *time.Time
}

func applies(v Validator, kind string) bool {
	return slices.Contains(v.Kinds(), kind)
}

func valid(reason, evidence string) Outcome {
	return Outcome{State: types.StateValid, Reason: reason, Evidence: evidence}
}

func invalid(reason string) Outcome {
	return Outcome{State: types.StateInvalid, Reason: reason}
}

func indeterminate(reason string) Outcome {
	return Outcome{State: types.StateIndeterminate, Reason: reason}
}

// LocalBuiltins returns the format validators in registration order.
func LocalBuiltins() []Validator {
	return []Validator{
		GitHubPATFormat(),
		AWSKeypairFormat(),
		SlackWebhookFormat(),
		JWTStructure(),
		AzureSASFormat(),
		GCPServiceAccountFormat(),
	}
}

// NetworkBuiltins returns the live validators with production endpoints.
func NetworkBuiltins() []Validator {
	return []Validator{
		GitHubPATLive(nil, ""),
		AWSKeypairLive(nil),
		GCPServiceAccountLive(nil),
		AzureSASLive(nil),
	}
}

// Builtins returns local validators followed by network validators.
func Builtins() []Validator {
	return append(LocalBuiltins(), NetworkBuiltins()...)
}
