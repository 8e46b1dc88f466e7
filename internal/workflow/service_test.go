package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"vouch/internal/outbox"
	"vouch/internal/policy"
	"vouch/internal/reason"
	"vouch/internal/signal"
	"vouch/internal/tenant"
	"vouch/internal/vendor"
	"vouch/internal/waterfall"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
)

// stubRunner scripts waterfall outcomes per invocation and records the vendor
// controls it was handed.
type stubRunner struct {
	calls    int
	controls []tenant.VendorControls
	fn       func(controls tenant.VendorControls) (waterfall.Result, error)
}

func (r *stubRunner) Run(_ context.Context, _ id.IntentID, _ vendor.Request, controls tenant.VendorControls, _ policy.AmlPolicy) (waterfall.Result, error) {
	r.calls++
	r.controls = append(r.controls, controls)
	return r.fn(controls)
}

func successResult(codes ...reason.Code) waterfall.Result {
	return waterfall.Result{
		Kind:      waterfall.ResultSuccess,
		Vendor:    vendor.KindIdology,
		AttemptID: id.NewAttemptID(),
		Codes:     codes,
	}
}

type ServiceSuite struct {
	suite.Suite
	store   *MemoryStore
	signals *signal.MemoryStore
	outbox  *outbox.MemoryStore
	runner  *stubRunner
	svc     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.signals = signal.NewMemoryStore()
	s.outbox = outbox.NewMemoryStore()
	s.runner = &stubRunner{fn: func(tenant.VendorControls) (waterfall.Result, error) {
		return successResult(reason.NameMatches, reason.SsnMatches), nil
	}}
	s.svc = NewService(s.store, s.signals, s.outbox, s.runner)
}

func (s *ServiceSuite) config(kind tenant.WorkflowKind) tenant.OnboardingConfig {
	return tenant.OnboardingConfig{
		ID:       id.NewConfigID(),
		TenantID: id.NewTenantID(),
		Kind:     kind,
		Vendors:  tenant.VendorControls{Enabled: []vendor.Kind{vendor.KindIdology, vendor.KindIncode, vendor.KindComply}},
		Aml:      policy.AmlPolicy{Enhanced: true, Ofac: true, Pep: true, AdverseMedia: true},
	}
}

func (s *ServiceSuite) apply(inst WorkflowInstance, action Action, input ApplyInput) WorkflowInstance {
	out, err := s.svc.Apply(context.Background(), inst.ID, action, input)
	s.Require().NoError(err)
	return out
}

func (s *ServiceSuite) TestIllegalActionWritesNothing() {
	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)

	_, err = s.svc.Apply(context.Background(), inst.ID, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))

	after, err := s.store.Get(context.Background(), inst.ID)
	s.Require().NoError(err)
	s.Equal(StepDataCollection, after.State.Step)

	events, err := s.store.ListEvents(context.Background(), inst.ID)
	s.Require().NoError(err)
	s.Empty(events, "a rejected action must leave the transition log untouched")
	s.Equal(0, s.runner.calls)
}

func (s *ServiceSuite) TestKycHappyPath() {
	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	s.Equal(StatusIncomplete, inst.Status)

	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})
	s.Equal(StepVendorCalls, inst.State.Step)
	s.Equal(StatusPending, inst.Status)
	s.Require().NotNil(inst.AuthorizedAt)

	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Equal(StepDecisioning, inst.State.Step)
	s.Empty(s.outbox.All(), "advancing without a composite change must not enqueue side effects")

	inst = s.apply(inst, ActionMakeDecision, ApplyInput{Config: cfg})
	s.Equal(StepComplete, inst.State.Step)
	s.Equal(StatusPass, inst.Status)
	s.Equal(DecisionPass, inst.Decision)
	s.Require().NotNil(inst.DecisionMadeAt)
	s.Require().NotNil(inst.CompletedAt)

	entries := s.outbox.All()
	s.Require().Len(entries, 2)
	s.Equal(outbox.KindBilling, entries[0].Kind)
	s.Equal(outbox.KindWebhook, entries[1].Kind)

	var task outbox.WebhookTask
	s.Require().NoError(json.Unmarshal(entries[1].Payload, &task))
	s.Equal(string(StatusPass), task.Status)
	s.False(task.RequiresReview)

	events, err := s.store.ListEvents(context.Background(), inst.ID)
	s.Require().NoError(err)
	s.Len(events, 3)
}

func (s *ServiceSuite) TestVendorFailureLeavesStateUnchanged() {
	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})

	s.runner.fn = func(tenant.VendorControls) (waterfall.Result, error) {
		return waterfall.Result{Kind: waterfall.ResultVendorRequestsFailed}, nil
	}
	_, err = s.svc.Apply(context.Background(), inst.ID, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeVendorRequestsFailed))

	after, err := s.store.Get(context.Background(), inst.ID)
	s.Require().NoError(err)
	s.Equal(StepVendorCalls, after.State.Step, "a failed waterfall must leave the action retryable")

	// the vendors recover; the same action now advances the workflow
	s.runner.fn = func(tenant.VendorControls) (waterfall.Result, error) {
		return successResult(reason.SsnMatches), nil
	}
	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Equal(StepDecisioning, inst.State.Step)
}

func (s *ServiceSuite) TestStepUpThenDocumentRescue() {
	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})

	s.runner.fn = func(tenant.VendorControls) (waterfall.Result, error) {
		return successResult(reason.NameMatches, reason.AddressDoesNotMatch), nil
	}
	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})

	inst = s.apply(inst, ActionMakeDecision, ApplyInput{Config: cfg})
	s.Equal(StepDocCollection, inst.State.Step)
	s.Equal(StatusIncomplete, inst.Status)
	s.Nil(inst.DecisionMadeAt, "a step-up is not a decision")
	s.Empty(s.outbox.All(), "a step-up must not fire terminal side effects")

	s.runner.fn = func(controls tenant.VendorControls) (waterfall.Result, error) {
		return waterfall.Result{
			Kind:      waterfall.ResultSuccess,
			Vendor:    vendor.KindIncode,
			AttemptID: id.NewAttemptID(),
			Codes:     []reason.Code{reason.DocumentVerified},
		}, nil
	}
	inst = s.apply(inst, ActionDocCollected, ApplyInput{Config: cfg})
	s.Equal(StepDecisioning, inst.State.Step)
	s.Equal([]vendor.Kind{vendor.KindIncode}, s.runner.controls[len(s.runner.controls)-1].Enabled,
		"document collection must only consult document verifiers")

	inst = s.apply(inst, ActionMakeDecision, ApplyInput{Config: cfg})
	s.Equal(StepComplete, inst.State.Step)
	s.Equal(StatusPass, inst.Status)
	s.Require().NotNil(inst.DecisionMadeAt)
}

func (s *ServiceSuite) TestWatchlistHitRoutesAlpacaToReview() {
	cfg := s.config(tenant.WorkflowKindAlpacaKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})

	s.runner.fn = func(tenant.VendorControls) (waterfall.Result, error) {
		return successResult(reason.NameMatches, reason.WatchlistHitPep), nil
	}
	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})

	inst = s.apply(inst, ActionMakeDecision, ApplyInput{Config: cfg})
	s.Equal(StepPendingReview, inst.State.Step)
	s.Equal(StatusPending, inst.Status)
	s.True(inst.RequiresReview)
	s.Empty(s.outbox.All(), "pending review is not a terminal composite status")

	_, err = s.svc.Apply(context.Background(), inst.ID, ActionReviewCompleted, ApplyInput{Config: cfg, Review: ReviewApproved})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "review completion requires an actor")

	inst = s.apply(inst, ActionReviewCompleted, ApplyInput{Config: cfg, Actor: "compliance@tenant", Review: ReviewApproved})
	s.Equal(StepComplete, inst.State.Step)
	s.Equal(StatusPass, inst.Status)
	s.False(inst.RequiresReview)

	entries := s.outbox.All()
	s.Require().Len(entries, 2, "terminal composite change fires exactly one billing event and one webhook")

	events, err := s.store.ListEvents(context.Background(), inst.ID)
	s.Require().NoError(err)
	s.Equal("compliance@tenant", events[len(events)-1].Actor)
}

func (s *ServiceSuite) TestWatchlistHitFailsPlainKyc() {
	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})

	s.runner.fn = func(tenant.VendorControls) (waterfall.Result, error) {
		return successResult(reason.NameMatches, reason.WatchlistHitPep), nil
	}
	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	inst = s.apply(inst, ActionMakeDecision, ApplyInput{Config: cfg})

	s.Equal(StepComplete, inst.State.Step)
	s.Equal(StatusFail, inst.Status)
	s.Equal(DecisionFail, inst.Decision)
}

func (s *ServiceSuite) TestKybAsyncVendorPath() {
	cfg := s.config(tenant.WorkflowKindKyb)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)

	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})
	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Equal(StepAwaitingAsyncVendors, inst.State.Step)
	s.Equal(StatusPending, inst.Status)

	inst = s.apply(inst, ActionAsyncVendorCallsCompleted, ApplyInput{Config: cfg})
	s.Equal(StepDecisioning, inst.State.Step)

	inst = s.apply(inst, ActionMakeDecision, ApplyInput{Config: cfg})
	s.Equal(StepComplete, inst.State.Step)
	s.Equal(StatusPass, inst.Status)
}

func (s *ServiceSuite) TestWatchlistOnlyScreeningPath() {
	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})

	s.runner.fn = func(tenant.VendorControls) (waterfall.Result, error) {
		return waterfall.Result{
			Kind:      waterfall.ResultSuccess,
			Vendor:    vendor.KindComply,
			AttemptID: id.NewAttemptID(),
		}, nil
	}
	inst = s.apply(inst, ActionMakeWatchlistCheckCall, ApplyInput{Config: cfg})
	s.Equal(StepDecisioning, inst.State.Step)
	s.Equal([]vendor.Kind{vendor.KindComply}, s.runner.controls[0].Enabled,
		"screening-only path must only consult watchlist vendors")
}

func (s *ServiceSuite) TestRedoCreatesSiblingAndFreezesPrior() {
	cfg := s.config(tenant.WorkflowKindKyc)
	applicant := id.NewApplicantID()
	inst, err := s.svc.Start(context.Background(), cfg, applicant)
	s.Require().NoError(err)

	// a second start while the first is unfinished is a conflict
	_, err = s.svc.Start(context.Background(), cfg, applicant)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})
	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	inst = s.apply(inst, ActionMakeDecision, ApplyInput{Config: cfg})
	s.Require().True(inst.Composite().Terminal())

	redo, err := s.svc.Start(context.Background(), cfg, applicant)
	s.Require().NoError(err)
	s.NotEqual(inst.ID, redo.ID)
	s.NotEqual(inst.IntentID, redo.IntentID, "a redo must not resume the prior decision intent")
	s.Equal(StepDataCollection, redo.State.Step)

	prior, err := s.store.Get(context.Background(), inst.ID)
	s.Require().NoError(err)
	s.False(prior.Active)
	s.Equal(inst.AuthorizedAt, prior.AuthorizedAt, "redo must freeze the prior instance's timestamps")
	s.Equal(inst.DecisionMadeAt, prior.DecisionMadeAt)
	s.Equal(inst.CompletedAt, prior.CompletedAt)

	active, found, err := s.store.ActiveForApplicant(context.Background(), applicant, cfg.ID)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(redo.ID, active.ID)
}

// failOnceSignals fails the first batch write, standing in for a workflow
// transaction that dies after the vendor attempt was recorded.
type failOnceSignals struct {
	*signal.MemoryStore
	failed bool
}

func (f *failOnceSignals) CreateBatch(ctx context.Context, batch []signal.RiskSignal) error {
	if !f.failed {
		f.failed = true
		return dErrors.New(dErrors.CodeInternal, "signal write failed")
	}
	return f.MemoryStore.CreateBatch(ctx, batch)
}

func (s *ServiceSuite) TestRetriedVendorCallsPersistReusedSignals() {
	signals := &failOnceSignals{MemoryStore: signal.NewMemoryStore()}
	codes := []reason.Code{reason.NameMatches, reason.SsnMatches}
	attemptID := id.NewAttemptID()
	runner := &stubRunner{fn: func(tenant.VendorControls) (waterfall.Result, error) {
		return waterfall.Result{
			Kind:      waterfall.ResultSuccess,
			Vendor:    vendor.KindIdology,
			AttemptID: attemptID,
			Codes:     codes,
			Reused:    true,
		}, nil
	}}
	svc := NewService(s.store, signals, s.outbox, runner)

	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	inst, err = svc.Apply(context.Background(), inst.ID, ActionAuthorize, ApplyInput{Config: cfg})
	s.Require().NoError(err)

	// First delivery dies mid-transaction, after the attempt was recorded.
	_, err = svc.Apply(context.Background(), inst.ID, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Require().Error(err)

	// The retry resumes against the recorded attempt. The signals it carries
	// must land, or decisioning would run against an empty set.
	inst, err = svc.Apply(context.Background(), inst.ID, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Require().NoError(err)
	s.Equal(StepDecisioning, inst.State.Step)

	active, err := signals.ListActive(context.Background(), inst.ID)
	s.Require().NoError(err)
	s.Require().Len(active, len(codes))
	for _, sig := range active {
		s.Equal(attemptID, sig.AttemptID)
	}
}

func (s *ServiceSuite) TestResumedWaterfallKeepsExistingSignals() {
	cfg := s.config(tenant.WorkflowKindKyc)
	inst, err := s.svc.Start(context.Background(), cfg, id.NewApplicantID())
	s.Require().NoError(err)
	inst = s.apply(inst, ActionAuthorize, ApplyInput{Config: cfg})
	inst = s.apply(inst, ActionMakeVendorCalls, ApplyInput{Config: cfg})

	created := len(s.signals.All())
	s.Require().Positive(created)

	// a duplicate delivery retries the action after the step already advanced;
	// the transition is rejected and signals stay as they were
	_, err = s.svc.Apply(context.Background(), inst.ID, ActionMakeVendorCalls, ApplyInput{Config: cfg})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	s.Len(s.signals.All(), created)
}
