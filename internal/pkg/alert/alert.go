// Package alert forwards operator-facing failures to Rollbar.
package alert

import (
	"context"
	"errors"

	"github.com/rollbar/rollbar-go"

	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
)

// Alerter reports an error that an operator has to act on.
type Alerter interface {
	Alert(ctx context.Context, err error, fields map[string]any)
	Close() error
}

type Config struct {
	Enabled     bool
	Token       string
	Environment string
	ServerHost  string
	CodeVersion string
}

type Rollbar struct{}

// NewRollbar configures the process-wide rollbar client.
func NewRollbar(cfg Config) *Rollbar {
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetServerHost(cfg.ServerHost)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	rollbar.SetEnabled(cfg.Enabled && cfg.Token != "")
	return &Rollbar{}
}

func (r *Rollbar) Alert(ctx context.Context, err error, fields map[string]any) {
	rollbar.Error(err, withCorrelation(ctx, fields))
}

// Report satisfies instrument.ErrorReporter so error-level logs reach Rollbar.
func (r *Rollbar) Report(ctx context.Context, msg string, attrs map[string]any) {
	rollbar.Error(errors.New(msg), withCorrelation(ctx, attrs))
}

// Close flushes queued items.
func (r *Rollbar) Close() error {
	rollbar.Wait()
	return nil
}

func withCorrelation(ctx context.Context, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if cid := instrument.GetCorrelationID(ctx); cid != "" {
		out["correlation_id"] = cid
	}
	return out
}

type Noop struct{}

func (Noop) Alert(context.Context, error, map[string]any)   {}
func (Noop) Report(context.Context, string, map[string]any) {}
func (Noop) Close() error                                   { return nil }

var (
	_ Alerter                  = (*Rollbar)(nil)
	_ instrument.ErrorReporter = (*Rollbar)(nil)
	_ Alerter                  = Noop{}
)
