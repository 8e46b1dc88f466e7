package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vouch/internal/outbox"
	"vouch/internal/platform/metrics"
	"vouch/internal/policy"
	"vouch/internal/reason"
	"vouch/internal/signal"
	"vouch/internal/tenant"
	"vouch/internal/vendor"
	"vouch/internal/waterfall"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
)

// WaterfallRunner is the slice of the waterfall orchestrator the service
// needs; tests stub it.
type WaterfallRunner interface {
	Run(ctx context.Context, intentID id.IntentID, req vendor.Request, controls tenant.VendorControls, pol policy.AmlPolicy) (waterfall.Result, error)
}

// ApplyInput carries the per-action payload. Config is the tenant snapshot
// the workflow was started against; vendor-facing actions also carry the
// applicant fields, review completion carries the actor and their decision.
type ApplyInput struct {
	Config  tenant.OnboardingConfig
	Request vendor.Request
	Actor   string
	Review  ReviewDecision
}

// Service drives workflow instances through validated transitions. Every
// Apply runs as one transaction: row lock, table validation, action effects,
// state write, event append, and outbox rows all commit or roll back
// together.
type Service struct {
	store   Store
	signals signal.Store
	outbox  outbox.Store
	runner  WaterfallRunner

	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, signals signal.Store, ob outbox.Store, runner WaterfallRunner, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		signals: signals,
		outbox:  ob,
		runner:  runner,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a workflow instance for an applicant against a configuration
// snapshot. An applicant with an unfinished active instance gets a conflict;
// a completed active instance is deactivated and superseded by a fresh
// sibling, its timestamps left frozen.
func (s *Service) Start(ctx context.Context, cfg tenant.OnboardingConfig, applicantID id.ApplicantID) (WorkflowInstance, error) {
	if err := cfg.Validate(); err != nil {
		return WorkflowInstance{}, err
	}
	var out WorkflowInstance
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		now := s.now()
		prior, found, err := s.store.ActiveForApplicant(ctx, applicantID, cfg.ID)
		if err != nil {
			return err
		}
		if found {
			if !prior.Composite().Terminal() {
				return dErrors.Newf(dErrors.CodeConflict,
					"applicant %s already has an active workflow %s in step %q",
					applicantID.String(), prior.ID.String(), string(prior.State.Step))
			}
			if err := s.store.Deactivate(ctx, prior.ID, now); err != nil {
				return err
			}
			s.logInfo(ctx, "workflow superseded",
				slog.String("workflow_id", prior.ID.String()),
				slog.String("applicant_id", applicantID.String()))
		}
		inst := NewInstance(cfg, applicantID, now)
		if err := s.store.Create(ctx, inst); err != nil {
			return err
		}
		out = inst
		return nil
	})
	return out, err
}

// Apply executes one action against a workflow instance. Illegal actions
// return a typed error and write nothing. A waterfall that cannot make
// progress also leaves the instance unchanged so the action can be retried.
func (s *Service) Apply(ctx context.Context, workflowID id.WorkflowID, action Action, input ApplyInput) (WorkflowInstance, error) {
	var out WorkflowInstance
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		inst, err := s.store.GetForUpdate(ctx, workflowID)
		if err != nil {
			return err
		}
		targets, err := nextSteps(inst.State, action)
		if err != nil {
			return err
		}

		before := inst.Composite()
		from := inst.State.Step
		now := s.now()

		next, err := s.execute(ctx, &inst, action, input, targets, now)
		if err != nil {
			return err
		}

		inst.State.Step = next
		if next == StepComplete && inst.CompletedAt == nil {
			at := now
			inst.CompletedAt = &at
		}
		inst.UpdatedAt = now

		if err := s.store.Update(ctx, inst); err != nil {
			return err
		}
		event := TransitionEvent{
			ID:         uuid.New(),
			WorkflowID: inst.ID,
			FromStep:   from,
			ToStep:     next,
			Action:     action,
			Actor:      input.Actor,
			CreatedAt:  now,
		}
		if err := s.store.AppendEvent(ctx, event); err != nil {
			return err
		}
		if err := s.emitSideEffects(ctx, inst, before, now); err != nil {
			return err
		}

		if s.metrics != nil {
			s.metrics.WorkflowTransitions.WithLabelValues(string(inst.State.Kind), string(action)).Inc()
		}
		s.logInfo(ctx, "workflow transition",
			slog.String("workflow_id", inst.ID.String()),
			slog.String("action", string(action)),
			slog.String("from", string(from)),
			slog.String("to", string(next)))

		out = inst
		return nil
	})
	return out, err
}

// execute applies the action's effects to the instance and picks the target
// step. It mutates inst but performs no persistence of its own beyond risk
// signal writes, which ride the surrounding transaction.
func (s *Service) execute(ctx context.Context, inst *WorkflowInstance, action Action, input ApplyInput, targets []Step, now time.Time) (Step, error) {
	switch action {
	case ActionAuthorize:
		if inst.AuthorizedAt == nil {
			at := now
			inst.AuthorizedAt = &at
		}
		inst.Status = statusForStep(targets[0])
		return targets[0], nil

	case ActionMakeVendorCalls:
		if err := s.runWaterfall(ctx, inst, input, input.Config.Vendors, now, true); err != nil {
			return "", err
		}
		inst.Status = statusForStep(targets[0])
		return targets[0], nil

	case ActionMakeWatchlistCheckCall:
		controls := watchlistControls(input.Config.Vendors)
		if err := s.runWaterfall(ctx, inst, input, controls, now, true); err != nil {
			return "", err
		}
		inst.Status = statusForStep(targets[0])
		return targets[0], nil

	case ActionDocCollected:
		// Document signals are appended, not a rewrite: the identity signals
		// that triggered the step-up must stay active for the re-decision.
		controls := docControls(input.Config.Vendors)
		if err := s.runWaterfall(ctx, inst, input, controls, now, false); err != nil {
			return "", err
		}
		inst.Status = statusForStep(targets[0])
		return targets[0], nil

	case ActionAsyncVendorCallsCompleted:
		inst.Status = statusForStep(targets[0])
		return targets[0], nil

	case ActionMakeDecision:
		return s.makeDecision(ctx, inst, targets, now)

	case ActionReviewCompleted:
		if input.Actor == "" {
			return "", dErrors.New(dErrors.CodeInvalidInput, "review completion requires an actor")
		}
		if !input.Review.IsValid() {
			return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown review decision %q", string(input.Review))
		}
		inst.RequiresReview = false
		if input.Review == ReviewApproved {
			inst.Decision = DecisionPass
			inst.Status = StatusPass
		} else {
			inst.Decision = DecisionFail
			inst.Status = StatusFail
		}
		return targets[0], nil

	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown action %q", string(action))
	}
}

// runWaterfall invokes the orchestrator and persists the resulting risk
// signals. A reused result carries the codes its attempt recorded, and they
// are written like any fresh result: if the earlier transition committed, the
// action cannot legally run again, so the signals from this run are the only
// ones in play.
func (s *Service) runWaterfall(ctx context.Context, inst *WorkflowInstance, input ApplyInput, controls tenant.VendorControls, now time.Time, supersedePrior bool) error {
	result, err := s.runner.Run(ctx, inst.IntentID, input.Request, controls, input.Config.Aml)
	if err != nil {
		return err
	}
	switch result.Kind {
	case waterfall.ResultNotEnoughInformation:
		return dErrors.New(dErrors.CodeNotEnoughInformation, "no vendor enabled for this configuration")
	case waterfall.ResultVendorRequestsFailed:
		return dErrors.New(dErrors.CodeVendorRequestsFailed, "all enabled vendors failed or were disqualified")
	}
	if supersedePrior {
		if err := s.signals.DeactivateForWorkflow(ctx, inst.ID, now); err != nil {
			return err
		}
	}
	batch := signal.NewBatch(inst.ID, result.Vendor, result.AttemptID, result.Codes, now)
	return s.signals.CreateBatch(ctx, batch)
}

// makeDecision reads the active risk signals and picks the decisioning
// outcome among the legal targets. decision_made_at is set the first time a
// decision concludes and never moves afterwards.
func (s *Service) makeDecision(ctx context.Context, inst *WorkflowInstance, targets []Step, now time.Time) (Step, error) {
	signals, err := s.signals.ListActive(ctx, inst.ID)
	if err != nil {
		return "", err
	}

	outcome := decide(signals)

	if outcome.watchlistHit && allowsTarget(targets, StepPendingReview) {
		inst.Status = StatusPending
		inst.RequiresReview = true
		return StepPendingReview, nil
	}
	if outcome.stepUpEligible && allowsTarget(targets, StepDocCollection) {
		inst.Status = StatusIncomplete
		return StepDocCollection, nil
	}

	if inst.DecisionMadeAt == nil {
		at := now
		inst.DecisionMadeAt = &at
	}
	if outcome.pass {
		inst.Decision = DecisionPass
		inst.Status = StatusPass
	} else {
		inst.Decision = DecisionFail
		inst.Status = StatusFail
	}
	return StepComplete, nil
}

// decisionOutcome is the raw verdict before the transition table constrains
// it to the kind's legal targets.
type decisionOutcome struct {
	pass           bool
	watchlistHit   bool
	stepUpEligible bool
}

// decide folds the active signals into an outcome. High-severity signals
// fail. Medium-severity identity mismatches are step-up eligible: document
// verification gets one chance to rescue the decision before it fails. A
// watchlist hit fails outright unless the kind routes it to manual review;
// it is never step-up eligible.
func decide(signals []signal.RiskSignal) decisionOutcome {
	var (
		high, mediumIdentity    bool
		docVerified, docDecided bool
		watchlist               bool
	)
	for _, sig := range signals {
		code := sig.Code
		if code.IsWatchlist() || code.IsPEP() || code.IsAdverseMedia() {
			watchlist = true
			continue
		}
		switch code.Severity() {
		case reason.SeverityHigh:
			high = true
		case reason.SeverityMedium:
			mediumIdentity = true
		}
		switch code {
		case reason.DocumentVerified:
			docVerified = true
			docDecided = true
		case reason.DocumentNotVerified:
			docDecided = true
		}
	}

	switch {
	case high:
		return decisionOutcome{watchlistHit: watchlist}
	case watchlist:
		return decisionOutcome{watchlistHit: true}
	case mediumIdentity && docVerified:
		return decisionOutcome{pass: true}
	case mediumIdentity && !docDecided:
		return decisionOutcome{stepUpEligible: true}
	case mediumIdentity:
		return decisionOutcome{}
	default:
		return decisionOutcome{pass: true}
	}
}

// emitSideEffects enqueues the billing event and webhook task when the
// composite status has changed into a terminal value. Enqueues ride the
// surrounding transaction, so they are never lost on commit and never leak on
// rollback.
func (s *Service) emitSideEffects(ctx context.Context, inst WorkflowInstance, before CompositeStatus, now time.Time) error {
	after := inst.Composite()
	if after == before || !after.Terminal() {
		return nil
	}

	billing, err := outbox.NewEntry(outbox.KindBilling, inst.ID.String(), outbox.BillingEvent{
		WorkflowID: inst.ID.String(),
		TenantID:   inst.TenantID.String(),
		Product:    string(inst.State.Kind),
		OccurredAt: now,
	}, now)
	if err != nil {
		return err
	}
	if err := s.outbox.Enqueue(ctx, billing); err != nil {
		return err
	}

	webhook, err := outbox.NewEntry(outbox.KindWebhook, inst.ID.String(), outbox.WebhookTask{
		WorkflowID:     inst.ID.String(),
		TenantID:       inst.TenantID.String(),
		Status:         string(after.Status),
		RequiresReview: after.RequiresReview,
		OccurredAt:     now,
	}, now)
	if err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, webhook)
}

// statusForStep derives the coarse status for non-terminal steps. Terminal
// status is set by decisioning or review, not here.
func statusForStep(step Step) Status {
	switch step {
	case StepDataCollection, StepDocCollection:
		return StatusIncomplete
	default:
		return StatusPending
	}
}

// watchlistControls narrows the enabled vendors to watchlist screeners for
// the screening-only path.
func watchlistControls(controls tenant.VendorControls) tenant.VendorControls {
	var enabled []vendor.Kind
	for _, kind := range controls.Enabled {
		if kind == vendor.KindComply {
			enabled = append(enabled, kind)
		}
	}
	return tenant.VendorControls{Enabled: enabled}
}

// docControls narrows the enabled vendors to document verifiers for the
// collected-document path.
func docControls(controls tenant.VendorControls) tenant.VendorControls {
	var enabled []vendor.Kind
	for _, kind := range controls.Enabled {
		if kind == vendor.KindIncode {
			enabled = append(enabled, kind)
		}
	}
	return tenant.VendorControls{Enabled: enabled}
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}
