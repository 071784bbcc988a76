/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"context"
	"log/slog"
	"time"

	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/provider"
	"github.com/suparena/compactconnect/records"
)

// Rollback statuses in the job output.
const (
	StatusFailed     = "FAILED"
	StatusInProgress = "IN_PROGRESS"
	StatusComplete   = "COMPLETE"
)

// DefaultTimeBudget is the per-invocation wall-clock allowance: 12 of a
// 15-minute execution budget, leaving headroom to persist results and
// return cleanly.
const DefaultTimeBudget = 12 * time.Minute

// JobOutput is the JSON result of one engine invocation. The populated
// fields depend on RollbackStatus per the job contract: FAILED carries only
// the error, IN_PROGRESS echoes the continuation fields the next invocation
// must carry, COMPLETE carries final counts and the results artifact key.
type JobOutput struct {
	RollbackStatus string `json:"rollbackStatus"`
	Error          string `json:"error,omitempty"`

	ProvidersProcessed *int `json:"providersProcessed,omitempty"`
	ProvidersReverted  *int `json:"providersReverted,omitempty"`
	ProvidersSkipped   *int `json:"providersSkipped,omitempty"`
	ProvidersFailed    *int `json:"providersFailed,omitempty"`

	ContinueFromProviderID string `json:"continueFromProviderId,omitempty"`
	Compact                string `json:"compact,omitempty"`
	Jurisdiction           string `json:"jurisdiction,omitempty"`
	StartDateTime          string `json:"startDateTime,omitempty"`
	EndDateTime            string `json:"endDateTime,omitempty"`
	RollbackReason         string `json:"rollbackReason,omitempty"`
	ExecutionName          string `json:"executionName,omitempty"`

	ResultsS3Key string `json:"resultsS3Key,omitempty"`
}

// Engine is the checkpointed license-upload rollback batch job. One Run
// call is one invocation: it processes providers until the discovered list
// is exhausted or the time budget is reached, persists results durably, and
// reports whether the caller must re-invoke with the returned continuation
// fields. Providers are processed strictly sequentially.
type Engine struct {
	store     datastore.Store
	results   ResultsStore
	publisher Publisher
	logger    *slog.Logger

	now    func() time.Time
	budget time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine clock, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithTimeBudget overrides the per-invocation time budget.
func WithTimeBudget(budget time.Duration) EngineOption {
	return func(e *Engine) { e.budget = budget }
}

// NewEngine constructs an Engine.
func NewEngine(store datastore.Store, results ResultsStore, publisher Publisher, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		results:   results,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		budget:    DefaultTimeBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one invocation. Input validation failures return a FAILED
// output with no work attempted. Internal integrity errors (the index and
// the aggregate disagreeing, an assumption of the revert algorithm
// violated) abort the invocation with an error so the orchestrator marks
// the job for investigation; provider-scoped failures are recorded in the
// results artifact and do not stop the loop.
func (e *Engine) Run(ctx context.Context, in JobInput) (JobOutput, error) {
	w, err := in.Validate()
	if err != nil {
		e.logger.Error("rollback input validation failed", "error", err)
		return JobOutput{RollbackStatus: StatusFailed, Error: err.Error()}, nil
	}

	startedAt := e.now()
	st := discoveringState()
	e.logger.Info("starting rollback invocation",
		"state", st.String(),
		"compact", w.Compact,
		"jurisdiction", w.Jurisdiction,
		"executionName", w.ExecutionName,
		"continueFromProviderId", w.ContinueFromProviderID)

	providers, err := DiscoverAffectedProviders(ctx, e.store, w.Compact, w.Jurisdiction, w.Start, w.End)
	if err != nil {
		return e.fail(err)
	}
	if w.ContinueFromProviderID != "" {
		providers, err = sliceFromProvider(providers, w.ContinueFromProviderID)
		if err != nil {
			return e.fail(err)
		}
	}
	st = processingState(providers)
	e.logger.Info("rollback discovery complete",
		"state", st.String(), "providersRemaining", st.remaining())

	results, err := e.results.Load(ctx, w.ExecutionName)
	if err != nil {
		return e.fail(err)
	}
	results.ExecutionName = w.ExecutionName

	processed := w.ProvidersProcessed
	for {
		providerID, ok := st.current()
		if !ok {
			break
		}
		if e.now().Sub(startedAt) > e.budget {
			// Halt only between providers, never mid-provider.
			return e.suspend(ctx, w, results, processed, st)
		}

		if err := e.processProvider(ctx, w, providerID, results); err != nil {
			return e.fail(err)
		}
		processed++
		st = st.advance()
	}

	key, err := e.results.Save(ctx, results)
	if err != nil {
		return e.fail(err)
	}
	e.logger.Info("rollback complete",
		"state", st.String(),
		"executionName", w.ExecutionName,
		"providersProcessed", processed,
		"resultsKey", key)
	return JobOutput{
		RollbackStatus:     StatusComplete,
		ProvidersProcessed: intp(processed),
		ProvidersReverted:  intp(len(results.RevertedProviderSummaries)),
		ProvidersSkipped:   intp(len(results.SkippedProviderDetails)),
		ProvidersFailed:    intp(len(results.FailedProviderDetails)),
		ResultsS3Key:       key,
	}, nil
}

// processProvider runs steps b through h of the per-provider loop for one
// provider, appending its outcome to results. The returned error is fatal
// for the execution.
func (e *Engine) processProvider(ctx context.Context, w *Window, providerID string, results *Results) error {
	agg, err := provider.LoadProviderRecords(ctx, e.store, w.Compact, providerID, records.TierThree)
	if err != nil {
		if errors.IsNotFound(err) {
			// Discovered via the index but gone now: concurrent deletion,
			// scoped to this provider.
			results.FailedProviderDetails = append(results.FailedProviderDetails, ProviderFailedDetails{
				ProviderID: providerID,
				Error:      err.Error(),
			})
			return nil
		}
		return err
	}

	plan, inel, err := BuildProviderPlan(agg, w.Jurisdiction, w.Start, w.End)
	if err != nil {
		return err
	}
	if inel != nil {
		e.logger.Info("skipping ineligible provider",
			"providerId", providerID, "reasons", inel.Reasons)
		results.SkippedProviderDetails = append(results.SkippedProviderDetails, ProviderSkippedDetails{
			ProviderID:        providerID,
			Reasons:           inel.Reasons,
			IneligibleUpdates: inel.IneligibleUpdates,
		})
		return nil
	}

	now := e.now().UTC()
	summary, providerErr, fatal := executePlan(ctx, e.store, w.Compact, plan, now)
	if fatal != nil {
		return fatal
	}
	if providerErr != nil {
		e.logger.Error("provider revert failed",
			"providerId", providerID, "error", providerErr)
		results.FailedProviderDetails = append(results.FailedProviderDetails, ProviderFailedDetails{
			ProviderID: providerID,
			Error:      providerErr.Error(),
		})
		return nil
	}

	results.RevertedProviderSummaries = append(results.RevertedProviderSummaries, *summary)
	if err := e.publisher.PublishReverted(ctx, revertedEvents(plan, w, now)); err != nil {
		// Best-effort: the data state is already committed.
		e.logger.Warn("failed to publish reverted events",
			"providerId", providerID, "error", err)
	}
	return nil
}

// fail transitions the invocation to the failed state and surfaces the
// fatal error to the orchestrator.
func (e *Engine) fail(err error) (JobOutput, error) {
	st := failedState(err.Error())
	e.logger.Error("rollback invocation failed",
		"state", st.String(), "error", st.reason)
	return JobOutput{}, err
}

// suspend persists partial results and returns IN_PROGRESS with the provider
// at the processing cursor as the continuation point.
func (e *Engine) suspend(ctx context.Context, w *Window, results *Results, processed int, st state) (JobOutput, error) {
	nextProviderID, ok := st.current()
	if !ok {
		return e.fail(errors.NewInternalError("suspend with no provider at the cursor"))
	}
	if _, err := e.results.Save(ctx, results); err != nil {
		return e.fail(err)
	}
	e.logger.Info("rollback time budget reached, suspending",
		"state", st.String(),
		"executionName", w.ExecutionName,
		"providersProcessed", processed,
		"providersRemaining", st.remaining(),
		"continueFromProviderId", nextProviderID)
	return JobOutput{
		RollbackStatus:         StatusInProgress,
		ProvidersProcessed:     intp(processed),
		ProvidersReverted:      intp(len(results.RevertedProviderSummaries)),
		ProvidersSkipped:       intp(len(results.SkippedProviderDetails)),
		ProvidersFailed:        intp(len(results.FailedProviderDetails)),
		ContinueFromProviderID: nextProviderID,
		Compact:                w.Compact,
		Jurisdiction:           w.Jurisdiction,
		StartDateTime:          w.Start.Format(time.RFC3339),
		EndDateTime:            w.End.Format(time.RFC3339),
		RollbackReason:         w.RollbackReason,
		ExecutionName:          w.ExecutionName,
	}, nil
}

func intp(n int) *int {
	return &n
}
