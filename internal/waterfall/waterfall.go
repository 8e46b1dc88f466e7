// Package waterfall tries a tenant's enabled vendors in priority order for a
// decision intent, returning the first rule-passing result and persisting
// every attempt for audit and idempotent resume.
package waterfall

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vouch/internal/normalize"
	"vouch/internal/platform/metrics"
	"vouch/internal/policy"
	"vouch/internal/reason"
	"vouch/internal/tenant"
	"vouch/internal/vendor"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/circuit"
)

// ResultKind is the exit contract of one waterfall invocation.
type ResultKind string

const (
	// ResultSuccess means some vendor produced a rule-passing response.
	ResultSuccess ResultKind = "success"

	// ResultVendorRequestsFailed means every enabled vendor was attempted
	// and none passed. Retryable: the next invocation re-attempts vendors
	// whose last attempt errored or was rule-disqualified.
	ResultVendorRequestsFailed ResultKind = "vendor_requests_failed"

	// ResultNotEnoughInformation means no vendor is enabled for the tenant.
	// A configuration error, not a vendor error; nothing was attempted.
	ResultNotEnoughInformation ResultKind = "not_enough_information"
)

// Result carries the waterfall outcome with provenance.
type Result struct {
	Kind      ResultKind
	Vendor    vendor.Kind
	AttemptID id.AttemptID
	Codes     []reason.Code

	// Reused is set when the result came from a prior rule-passing attempt
	// for the same intent instead of a fresh vendor call.
	Reused bool
}

// Orchestrator runs vendor waterfalls.
type Orchestrator struct {
	attempts AttemptStore
	clients  map[vendor.Kind]vendor.Client
	breakers map[vendor.Kind]*circuit.Breaker
	rule     Rule
	logic    normalize.MatchLogic
	timeout  time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(o *Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithRule(rule Rule) Option {
	return func(o *Orchestrator) { o.rule = rule }
}

func WithMatchLogic(logic normalize.MatchLogic) Option {
	return func(o *Orchestrator) { o.logic = logic }
}

// WithTimeout bounds each individual vendor dispatch.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New constructs an Orchestrator over the given clients.
func New(attempts AttemptStore, clients []vendor.Client, opts ...Option) *Orchestrator {
	byKind := make(map[vendor.Kind]vendor.Client, len(clients))
	breakers := make(map[vendor.Kind]*circuit.Breaker, len(clients))
	for _, c := range clients {
		byKind[c.Kind()] = c
		breakers[c.Kind()] = circuit.New(c.Kind().String())
	}
	o := &Orchestrator{
		attempts: attempts,
		clients:  byKind,
		breakers: breakers,
		rule:     DefaultRule(),
		logic:    normalize.CurrentMatchLogic{},
		timeout:  20 * time.Second,
		tracer:   otel.Tracer("vouch/waterfall"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the waterfall for one decision intent.
//
// The whole run holds the intent lock so the resume check and any dispatches
// appear atomic to a concurrent run for the same intent. Attempts are
// persisted inside the lock, success or error, before the next vendor is
// considered.
func (o *Orchestrator) Run(ctx context.Context, intentID id.IntentID, req vendor.Request, controls tenant.VendorControls, pol policy.AmlPolicy) (Result, error) {
	vendors := controls.EnabledVendors()
	if len(vendors) == 0 {
		o.countRun(ResultNotEnoughInformation)
		return Result{Kind: ResultNotEnoughInformation}, nil
	}

	var result Result
	err := o.attempts.WithIntentLock(ctx, intentID, func(ctx context.Context) error {
		var runErr error
		result, runErr = o.runLocked(ctx, intentID, req, vendors, pol)
		return runErr
	})
	if err != nil {
		return Result{}, err
	}
	o.countRun(result.Kind)
	return result, nil
}

func (o *Orchestrator) runLocked(ctx context.Context, intentID id.IntentID, req vendor.Request, vendors []vendor.Kind, pol policy.AmlPolicy) (Result, error) {
	latest, err := o.attempts.LatestByIntent(ctx, intentID)
	if err != nil {
		return Result{}, err
	}

	reqPayload, err := json.Marshal(req.Fields)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request fields: %w", err)
	}

	for _, kind := range vendors {
		// Idempotent resume: a prior rule-passing success for this intent
		// and vendor is reused without re-calling (or re-billing) the vendor.
		// The attempt carries its normalized codes, so the caller re-emits
		// the same risk signals a fresh call would have produced.
		if prior, ok := latest[kind]; ok && !prior.IsError && prior.RulePassed {
			o.logInfo(ctx, "reusing prior successful vendor attempt",
				"vendor", kind.String(), "attempt_id", prior.ID.String())
			return Result{Kind: ResultSuccess, Vendor: kind, AttemptID: prior.ID, Codes: prior.Codes, Reused: true}, nil
		}

		client, ok := o.clients[kind]
		if !ok {
			o.logError(ctx, "no client registered for enabled vendor", "vendor", kind.String())
			continue
		}

		// An open breaker means the vendor is currently unhealthy; fall
		// through to the next vendor without dispatching or recording. No
		// call was made, so there is nothing to audit or bill.
		if breaker := o.breakers[kind]; breaker != nil && breaker.IsOpen() {
			o.logInfo(ctx, "vendor circuit open, trying next vendor", "vendor", kind.String())
			o.countCall(kind, "circuit_open")
			continue
		}

		resp, callErr := o.dispatch(ctx, client, req)
		if breaker := o.breakers[kind]; breaker != nil {
			if callErr != nil {
				if _, change := breaker.RecordFailure(); change.Opened {
					o.logError(ctx, "vendor circuit opened", "vendor", kind.String())
				}
			} else {
				if _, change := breaker.RecordSuccess(); change.Closed {
					o.logInfo(ctx, "vendor circuit closed", "vendor", kind.String())
				}
			}
		}

		attempt := vendor.Attempt{
			ID:             id.NewAttemptID(),
			IntentID:       intentID,
			Vendor:         kind,
			RequestPayload: reqPayload,
			IsError:        callErr != nil,
			CreatedAt:      time.Now(),
		}

		if callErr != nil {
			// Hard and recoverable vendor errors are identical for control
			// flow; the distinction only affects logging.
			o.logError(ctx, "vendor call failed", "vendor", kind.String(), "error", callErr)
			o.countCall(kind, "error")
			if err := o.attempts.Create(ctx, attempt); err != nil {
				return Result{}, err
			}
			continue
		}

		respPayload, err := json.Marshal(resp)
		if err != nil {
			return Result{}, fmt.Errorf("marshal vendor response: %w", err)
		}
		attempt.ResponsePayload = respPayload

		codes := normalize.FromResponse(resp, pol, req.Fields, o.logic, o.logger)
		attempt.Codes = codes
		attempt.RulePassed = o.rule.Passes(codes)
		if err := o.attempts.Create(ctx, attempt); err != nil {
			return Result{}, err
		}

		if !attempt.RulePassed {
			o.logInfo(ctx, "vendor result disqualified by rule, trying next vendor",
				"vendor", kind.String())
			o.countCall(kind, "disqualified")
			continue
		}

		o.countCall(kind, "success")
		return Result{Kind: ResultSuccess, Vendor: kind, AttemptID: attempt.ID, Codes: codes}, nil
	}

	return Result{Kind: ResultVendorRequestsFailed}, nil
}

// dispatch calls one vendor under the per-vendor timeout. Once sent, whatever
// response or timeout arrives is recorded; there is no mid-flight cancel,
// because the attempt is billable and auditable regardless of downstream use.
func (o *Orchestrator) dispatch(ctx context.Context, client vendor.Client, req vendor.Request) (vendor.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "vendor.call",
		trace.WithAttributes(attribute.String("vendor", client.Kind().String())))
	defer span.End()

	start := time.Now()
	resp, err := client.Invoke(ctx, req)
	if o.metrics != nil {
		o.metrics.VendorCallLatency.WithLabelValues(client.Kind().String()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
	}
	return resp, err
}

func (o *Orchestrator) countCall(kind vendor.Kind, outcome string) {
	if o.metrics != nil {
		o.metrics.VendorCalls.WithLabelValues(kind.String(), outcome).Inc()
	}
}

func (o *Orchestrator) countRun(kind ResultKind) {
	if o.metrics != nil {
		o.metrics.WaterfallRuns.WithLabelValues(string(kind)).Inc()
	}
}

func (o *Orchestrator) logInfo(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.InfoContext(ctx, msg, args...)
	}
}

func (o *Orchestrator) logError(ctx context.Context, msg string, args ...any) {
	if o.logger != nil {
		o.logger.ErrorContext(ctx, msg, args...)
	}
}
