// Package handler wires the onboarding workflow endpoints to the workflow
// service. It stays thin: decode, delegate, translate errors.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vouch/internal/signal"
	"vouch/internal/tenant"
	"vouch/internal/vendor"
	"vouch/internal/workflow"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/httputil"
	"vouch/pkg/requestcontext"
)

// Service defines the workflow operations the handler needs.
type Service interface {
	Start(ctx context.Context, cfg tenant.OnboardingConfig, applicantID id.ApplicantID) (workflow.WorkflowInstance, error)
	Apply(ctx context.Context, workflowID id.WorkflowID, action workflow.Action, input workflow.ApplyInput) (workflow.WorkflowInstance, error)
}

// Reader provides the read-side lookups the handler serves directly.
type Reader interface {
	Get(ctx context.Context, workflowID id.WorkflowID) (workflow.WorkflowInstance, error)
	ListEvents(ctx context.Context, workflowID id.WorkflowID) ([]workflow.TransitionEvent, error)
}

// Handler wires workflow endpoints to the workflow service.
type Handler struct {
	service Service
	reader  Reader
	configs tenant.Store
	signals signal.Store
	logger  *slog.Logger
}

// New constructs a workflow handler with its dependencies.
func New(service Service, reader Reader, configs tenant.Store, signals signal.Store, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		reader:  reader,
		configs: configs,
		signals: signals,
		logger:  logger,
	}
}

// Register mounts workflow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/workflows", h.HandleStart)
	r.Get("/workflows/{workflowID}", h.HandleGet)
	r.Get("/workflows/{workflowID}/events", h.HandleListEvents)
	r.Get("/workflows/{workflowID}/signals", h.HandleListSignals)
	r.Post("/workflows/{workflowID}/actions/{action}", h.HandleAction)
}

type startRequest struct {
	ConfigID    string `json:"config_id"`
	ApplicantID string `json:"applicant_id"`
}

type actionRequest struct {
	Fields struct {
		FullName string `json:"full_name"`
		Ssn      string `json:"ssn"`
		Phone    string `json:"phone"`
		Dob      string `json:"dob"`
		Address  string `json:"address"`
	} `json:"fields"`
	Actor  string `json:"actor"`
	Review string `json:"review_decision"`
}

type workflowResponse struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	ApplicantID    string     `json:"applicant_id"`
	ConfigID       string     `json:"config_id"`
	Kind           string     `json:"kind"`
	Step           string     `json:"step"`
	Status         string     `json:"status"`
	RequiresReview bool       `json:"requires_review"`
	Decision       string     `json:"decision,omitempty"`
	AuthorizedAt   *time.Time `json:"authorized_at,omitempty"`
	DecisionMadeAt *time.Time `json:"decision_made_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Active         bool       `json:"active"`
}

func fromInstance(inst workflow.WorkflowInstance) workflowResponse {
	return workflowResponse{
		ID:             inst.ID.String(),
		TenantID:       inst.TenantID.String(),
		ApplicantID:    inst.ApplicantID.String(),
		ConfigID:       inst.ConfigID.String(),
		Kind:           string(inst.State.Kind),
		Step:           string(inst.State.Step),
		Status:         string(inst.Status),
		RequiresReview: inst.RequiresReview,
		Decision:       string(inst.Decision),
		AuthorizedAt:   inst.AuthorizedAt,
		DecisionMadeAt: inst.DecisionMadeAt,
		CompletedAt:    inst.CompletedAt,
		Active:         inst.Active,
	}
}

type eventResponse struct {
	ID        string    `json:"id"`
	FromStep  string    `json:"from_step"`
	ToStep    string    `json:"to_step"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type signalResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Vendor        string     `json:"vendor"`
	AttemptID     string     `json:"attempt_id"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// HandleStart handles POST /workflows requests.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[startRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	configID, err := id.ParseConfigID(req.ConfigID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	applicantID, err := id.ParseApplicantID(req.ApplicantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cfg, err := h.configs.Get(ctx, configID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	inst, err := h.service.Start(ctx, cfg, applicantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow start failed",
			"request_id", requestID,
			"config_id", req.ConfigID,
			"applicant_id", req.ApplicantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "workflow started",
		"request_id", requestID,
		"workflow_id", inst.ID.String(),
		"kind", string(inst.State.Kind),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromInstance(inst))
}

// HandleAction handles POST /workflows/{workflowID}/actions/{action} requests.
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "workflowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action := workflow.Action(chi.URLParam(r, "action"))

	req, ok := httputil.DecodeAndPrepare[actionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	inst, err := h.reader.Get(ctx, workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cfg, err := h.configs.Get(ctx, inst.ConfigID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	input := workflow.ApplyInput{
		Config:  cfg,
		Request: vendorRequest(inst.ApplicantID, req),
		Actor:   req.Actor,
		Review:  workflow.ReviewDecision(req.Review),
	}

	result, err := h.service.Apply(ctx, workflowID, action, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow action failed",
			"request_id", requestID,
			"workflow_id", workflowID.String(),
			"action", string(action),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "workflow action applied",
		"request_id", requestID,
		"workflow_id", workflowID.String(),
		"action", string(action),
		"step", string(result.State.Step),
		"status", string(result.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromInstance(result))
}

// HandleGet handles GET /workflows/{workflowID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "workflowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := h.reader.Get(r.Context(), workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromInstance(inst))
}

// HandleListEvents handles GET /workflows/{workflowID}/events requests.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "workflowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.reader.Get(r.Context(), workflowID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.reader.ListEvents(r.Context(), workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:        e.ID.String(),
			FromStep:  string(e.FromStep),
			ToStep:    string(e.ToStep),
			Action:    string(e.Action),
			Actor:     e.Actor,
			CreatedAt: e.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleListSignals handles GET /workflows/{workflowID}/signals requests.
func (h *Handler) HandleListSignals(w http.ResponseWriter, r *http.Request) {
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "workflowID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.reader.Get(r.Context(), workflowID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	signals, err := h.signals.ListActive(r.Context(), workflowID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]signalResponse, 0, len(signals))
	for _, s := range signals {
		out = append(out, signalResponse{
			ID:            s.ID.String(),
			Code:          s.Code.String(),
			Vendor:        s.Vendor.String(),
			AttemptID:     s.AttemptID.String(),
			CreatedAt:     s.CreatedAt,
			DeactivatedAt: s.DeactivatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func vendorRequest(applicantID id.ApplicantID, req actionRequest) vendor.Request {
	return vendor.Request{
		ApplicantID: applicantID,
		Fields: vendor.SubmittedFields{
			FullName: req.Fields.FullName,
			Ssn:      req.Fields.Ssn,
			Phone:    req.Fields.Phone,
			Dob:      req.Fields.Dob,
			Address:  req.Fields.Address,
		},
	}
}
