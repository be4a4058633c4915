// Package reconciler runs the Recaudo reconciliation of a collection batch.
//
// A run collects the settlement, order, provision and ledger tables (plus the
// optional accumulated history), normalizes them into an InputBundle, checks
// the join preconditions, joins settlements to orders to provisions, appends
// the result to the historical ledger and compares the per-identity totals of
// the settlements with those of the ledger in both directions.
//
// Example usage:
//
//	orchestrator, err := reconciler.NewOrchestrator(extractor, config, exporter, log)
//	orchestrator.OnTransition(func(t reconciler.Transition) {
//		fmt.Printf("%s -> %s\n", t.From, t.To)
//	})
//
//	result, err := orchestrator.Run(ctx, collector)
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"recaudo-reconciliation-service/internal/ledger"
	"recaudo-reconciliation-service/internal/table"
	"recaudo-reconciliation-service/pkg/errors"
	"recaudo-reconciliation-service/pkg/logger"
)

// State is a step of the run state machine
type State string

const (
	StateAwaitingInputs      State = "awaiting_inputs"
	StateNormalizing         State = "normalizing"
	StatePreconditionCheck   State = "precondition_check"
	StateJoining             State = "joining"
	StateAggregating         State = "aggregating"
	StateDiscrepancyComputed State = "discrepancy_computed"
	StateExported            State = "exported"
	StateHalted              State = "halted"
	StateHaltedPartial       State = "halted_partial"
	StateFailed              State = "failed"
)

// IsTerminal reports whether no further transition can follow
func (s State) IsTerminal() bool {
	switch s {
	case StateExported, StateHalted, StateHaltedPartial, StateFailed:
		return true
	}
	return false
}

// Transition records a state change of a run
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// TransitionCallback is called on every state change
type TransitionCallback func(Transition)

// Exporter writes the outputs of a run
type Exporter interface {
	// ExportRecaudo writes the unified table, the discrepancy views and the
	// accumulated ledger of a completed run
	ExportRecaudo(ctx context.Context, result *RunResult) error
	// ExportPartial writes the settlement-order table of a partial halt
	ExportPartial(ctx context.Context, result *RunResult) error
	// ExportCartera writes the processed portfolio table
	ExportCartera(ctx context.Context, result *CarteraResult) error
}

// RunResult is the outcome of one Recaudo run, including halted runs
type RunResult struct {
	RunID        string                       `json:"run_id"`
	State        State                        `json:"state"`
	Transitions  []Transition                 `json:"transitions"`
	Counts       map[string]int               `json:"counts"`
	Join         *JoinResult                  `json:"-"`
	Accumulation *AccumulationResult          `json:"accumulation,omitempty"`
	Discrepancy  *DiscrepancyReport           `json:"discrepancy,omitempty"`
	LedgerStats  *ledger.Stats                `json:"ledger_stats,omitempty"`
	Issues       *errors.IssueCollector       `json:"-"`
	Missing      map[string][]string          `json:"missing_columns,omitempty"`
	Hints        map[string]map[string]string `json:"column_hints,omitempty"`
	// Halt is set when a precondition stopped the run
	Halt       *errors.ReconcilerError `json:"halt,omitempty"`
	Stages     []logger.StageTiming    `json:"stages"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
}

// Duration returns how long the run took
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Orchestrator drives runs through the state machine. It is not safe for
// concurrent use; each run is synchronous.
type Orchestrator struct {
	builder    *BundleBuilder
	pipeline   *Pipeline
	normalizer *table.Normalizer
	exporter   Exporter
	config     *Config
	logger     logger.Logger
	callbacks  []TransitionCallback
}

// NewOrchestrator creates an orchestrator. The exporter may be nil, in which
// case runs stop after the discrepancy views are computed.
func NewOrchestrator(extractor ledger.Extractor, config *Config, exporter Exporter, log logger.Logger) (*Orchestrator, error) {
	if extractor == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "ledger.dialects", nil, nil)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", config, err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &Orchestrator{
		builder:    NewBundleBuilder(extractor, config, log),
		pipeline:   NewPipeline(config, log),
		normalizer: table.NewNormalizer(log),
		exporter:   exporter,
		config:     config,
		logger:     log.WithComponent("orchestrator"),
	}, nil
}

// OnTransition adds a state change callback
func (o *Orchestrator) OnTransition(callback TransitionCallback) {
	o.callbacks = append(o.callbacks, callback)
}

func (o *Orchestrator) transition(result *RunResult, to State) {
	if result.State.IsTerminal() {
		o.logger.WithFields(logger.Fields{
			"run_id": result.RunID,
			"from":   result.State,
			"to":     to,
		}).Error("Transition out of a terminal state ignored")
		return
	}
	t := Transition{From: result.State, To: to, At: time.Now()}
	result.State = to
	result.Transitions = append(result.Transitions, t)
	o.logger.WithFields(logger.Fields{
		"run_id": result.RunID,
		"from":   t.From,
		"to":     t.To,
	}).Debug("State changed")
	for _, cb := range o.callbacks {
		cb(t)
	}
}

// Run executes one Recaudo reconciliation. On a halt both the result and a
// precondition error are returned; the result then tells what was computed
// before the halt.
func (o *Orchestrator) Run(ctx context.Context, collector InputCollector) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.NewString(),
		State:     StateAwaitingInputs,
		StartedAt: time.Now(),
	}
	log := o.logger.WithField("run_id", result.RunID)
	tracker := logger.NewStageTracker(log, "recaudo")
	log.Info("Starting reconciliation run")

	finish := func(err error) (*RunResult, error) {
		result.Stages = tracker.Stages()
		result.FinishedAt = time.Now()
		if err != nil {
			tracker.CompleteWithError(err)
		} else {
			tracker.Complete()
		}
		return result, err
	}
	fail := func(err error, operation string) (*RunResult, error) {
		o.transition(result, StateFailed)
		return finish(errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError,
			"unexpected error during "+operation))
	}
	halt := func(err error, to State) (*RunResult, error) {
		rerr := errors.WrapIfNeeded(err, errors.CategoryPrecondition, errors.CodeUnexpectedError, "run halted")
		result.Halt = rerr
		o.transition(result, to)
		log.WithFields(logger.Fields{
			"code":  rerr.Code,
			"state": to,
		}).Warn(rerr.Message)
		if to == StateHaltedPartial && o.exporter != nil {
			if exportErr := o.exporter.ExportPartial(ctx, result); exportErr != nil {
				log.WithError(exportErr).Error("Failed to export partial data")
			}
		}
		return finish(rerr)
	}

	o.transition(result, StateNormalizing)
	end := tracker.Begin("normalize")
	bundle, err := o.builder.Build(ctx, collector)
	if err != nil {
		return fail(err, "input collection")
	}
	result.Counts = bundle.Counts()
	result.LedgerStats = bundle.LedgerStats
	result.Issues = bundle.Issues
	result.Missing = bundle.Missing
	result.Hints = bundle.Hints
	end(logger.Fields{"cell_issues": bundle.Issues.Count()})

	if err := aborted(ctx, "precondition check"); err != nil {
		return fail(err, "precondition check")
	}
	o.transition(result, StatePreconditionCheck)
	if err := o.pipeline.Check(bundle); err != nil {
		return halt(err, StateHalted)
	}

	if err := aborted(ctx, "join"); err != nil {
		return fail(err, "join")
	}
	o.transition(result, StateJoining)
	end = tracker.Begin("join")
	join, err := o.pipeline.Join(bundle)
	result.Join = join
	if err != nil {
		if join == nil || join.Partial == nil {
			return halt(err, StateHalted)
		}
		return halt(err, StateHaltedPartial)
	}
	end(logger.Fields{"rows": join.Unified.Len(), "unparsed_dates": join.UnparsedDates})

	if err := aborted(ctx, "aggregation"); err != nil {
		return fail(err, "aggregation")
	}
	o.transition(result, StateAggregating)
	end = tracker.Begin("accumulate")
	result.Accumulation = o.pipeline.Accumulate(bundle, join)
	end(logger.Fields{"combined_rows": result.Accumulation.CombinedRows})

	end = tracker.Begin("discrepancy")
	result.Discrepancy = o.pipeline.Discrepancies(bundle, join)
	end(logger.Fields{
		"settlement_unmatched": len(result.Discrepancy.SettlementVsLedger.Unmatched),
		"ledger_unmatched":     len(result.Discrepancy.LedgerVsSettlement.Unmatched),
	})
	o.transition(result, StateDiscrepancyComputed)

	if o.exporter == nil {
		return finish(nil)
	}
	if err := aborted(ctx, "export"); err != nil {
		return fail(err, "export")
	}
	end = tracker.Begin("export")
	if err := o.exporter.ExportRecaudo(ctx, result); err != nil {
		return fail(errors.WrapIfNeeded(err, errors.CategoryExport, errors.CodeExportFailed, "failed to export results"), "export")
	}
	end(nil)
	o.transition(result, StateExported)

	return finish(nil)
}

// RunCartera processes the portfolio table and exports it
func (o *Orchestrator) RunCartera(ctx context.Context, collector InputCollector) (*CarteraResult, error) {
	log := o.logger.WithField("mode", "cartera")

	raw, err := collector.Provide(ctx, TableCartera)
	if err != nil {
		return nil, err
	}
	result, err := ProcessCartera(raw, o.normalizer, o.config.CarteraFill)
	if err != nil {
		log.WithError(err).Warn("Portfolio table could not be processed")
		return nil, err
	}
	result.RunID = uuid.NewString()

	log.WithFields(logger.Fields{
		"run_id":  result.RunID,
		"rows":    result.Table.Len(),
		"columns": result.Table.Width(),
		"filled":  result.Filled,
	}).Info("Portfolio table processed")

	if o.exporter != nil {
		if err := aborted(ctx, "cartera export"); err != nil {
			return result, err
		}
		if err := o.exporter.ExportCartera(ctx, result); err != nil {
			return result, errors.WrapIfNeeded(err, errors.CategoryExport, errors.CodeExportFailed, "failed to export portfolio")
		}
	}
	return result, nil
}

func aborted(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return errors.ReconciliationError(errors.CodeAborted, operation, err)
	}
	return nil
}
