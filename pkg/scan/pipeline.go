// Package scan runs the full check pipeline for one credential: local
// identification, policy filtering, breach lookup and signal fan-out, then
// aggregates everything into a single risk verdict.
package scan

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/wandb/parallel"

	"github.com/CompassSecurity/keyscope/pkg/breach"
	"github.com/CompassSecurity/keyscope/pkg/policy"
	"github.com/CompassSecurity/keyscope/pkg/provider"
	"github.com/CompassSecurity/keyscope/pkg/report"
	"github.com/CompassSecurity/keyscope/pkg/risk"
	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/CompassSecurity/keyscope/pkg/signal"
	"github.com/CompassSecurity/keyscope/pkg/verdict"
)

// Options configures one pipeline run. A nil Breach client means the breach
// lookup is skipped entirely, which is how offline mode is expressed.
type Options struct {
	Table              *provider.Table
	Signals            []signal.Signal
	Policy             policy.Config
	Breach             *breach.Client
	SignalBaseURLs     map[string]string
	MaxCheckGoRoutines int
}

// Outcome carries every intermediate and the final verdict for one credential.
type Outcome struct {
	Local    verdict.LocalVerdict
	Breach   breach.Result
	Signals  []signal.Result
	Excluded []policy.Exclusion
	Verdict  risk.Verdict
}

// Run checks a single credential. The buffer stays alive for the duration of
// the call and is not destroyed by the pipeline; the caller owns its lifecycle.
func Run(ctx context.Context, buf *secret.Buffer, opts Options) (Outcome, error) {
	fingerprint, err := risk.Fingerprint(buf)
	if err != nil {
		return Outcome{}, err
	}

	table := opts.Table
	if table == nil {
		table = provider.Default()
	}

	outcome := Outcome{
		Local: verdict.Build(buf, table),
	}

	runnable, credentials, excluded := policy.Apply(opts.Signals, opts.Policy)
	outcome.Excluded = excluded

	// Cancellation must win before any request leaves the process.
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	threads := opts.MaxCheckGoRoutines
	if threads < 1 {
		threads = 1
	}

	cfg := signal.Config{
		Credentials: credentials,
		BaseURLs:    opts.SignalBaseURLs,
	}

	group := parallel.Collect[signal.Result](parallel.Limited(ctx, threads))
	for _, sig := range runnable {
		sig := sig // keep per-iteration semantics under the go 1.21 directive
		group.Go(func(ctx context.Context) (signal.Result, error) {
			return sig.Check(ctx, buf, cfg), nil
		})
	}

	if opts.Breach != nil && !opts.Policy.Offline {
		outcome.Breach = opts.Breach.Check(ctx, buf)
	}

	results, err := group.Wait()
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed waiting for parallel signal checks")
	}
	outcome.Signals = results

	outcome.Verdict = risk.Aggregate(risk.Input{
		Local:       outcome.Local,
		Breach:      outcome.Breach,
		Signals:     outcome.Signals,
		Fingerprint: fingerprint,
	})

	return outcome, nil
}

// Finding projects the outcome into its loggable form. The credential bytes
// never cross this boundary.
func (o Outcome) Finding() report.Finding {
	f := report.Finding{
		Fingerprint: o.Verdict.Fingerprint,
		Provider:    o.Local.Identification.Provider,
		Confidence:  string(o.Local.Identification.Confidence),
		Level:       o.Verdict.Level.String(),
		Summary:     o.Verdict.Summary,
		Entropy:     o.Local.Entropy.Shannon,
		Encoding:    string(o.Local.Entropy.Encoding),
		Warnings:    o.Local.Warnings,
		Breached:    o.Breach.Found,
		Occurrences: o.Breach.Occurrences,
	}
	if o.Breach.Err != nil {
		f.Errored = append(f.Errored, "breach-lookup")
	}
	for _, res := range o.Signals {
		if res.Err != nil {
			f.Errored = append(f.Errored, res.ID)
			continue
		}
		if !res.Found {
			continue
		}
		switch res.Category {
		case signal.CategoryLiveness:
			f.ActiveOn = append(f.ActiveOn, res.ID)
		case signal.CategoryExposure:
			f.ExposedOn = append(f.ExposedOn, res.ID)
		}
	}
	return f
}
