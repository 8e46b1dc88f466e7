package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vouch/internal/outbox"
	"vouch/internal/policy"
	"vouch/internal/reason"
	"vouch/internal/signal"
	"vouch/internal/tenant"
	"vouch/internal/vendor"
	"vouch/internal/waterfall"
	"vouch/internal/workflow"
	id "vouch/pkg/domain"
)

// passingRunner always reports a clean rule-passing vendor result.
type passingRunner struct{}

func (passingRunner) Run(_ context.Context, _ id.IntentID, _ vendor.Request, _ tenant.VendorControls, _ policy.AmlPolicy) (waterfall.Result, error) {
	return waterfall.Result{
		Kind:      waterfall.ResultSuccess,
		Vendor:    vendor.KindIdology,
		AttemptID: id.NewAttemptID(),
		Codes:     []reason.Code{reason.NameMatches, reason.SsnMatches},
	}, nil
}

func newWorkflowRouter(t *testing.T) (http.Handler, tenant.OnboardingConfig) {
	t.Helper()

	configs := tenant.NewMemoryStore()
	cfg := tenant.OnboardingConfig{
		ID:       id.NewConfigID(),
		TenantID: id.NewTenantID(),
		Kind:     tenant.WorkflowKindKyc,
		Vendors:  tenant.VendorControls{Enabled: []vendor.Kind{vendor.KindIdology}},
		Aml:      policy.AmlPolicy{Enhanced: true, Ofac: true, Pep: true, AdverseMedia: true},
	}
	if err := configs.Save(context.Background(), cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	store := workflow.NewMemoryStore()
	signals := signal.NewMemoryStore()
	svc := workflow.NewService(store, signals, outbox.NewMemoryStore(), passingRunner{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, store, configs, signals, logger)

	router := chi.NewRouter()
	h.Register(router)
	return router, cfg
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStartAndDriveWorkflowViaHandlers(t *testing.T) {
	router, cfg := newWorkflowRouter(t)

	rec := postJSON(t, router, "/workflows", map[string]string{
		"config_id":    cfg.ID.String(),
		"applicant_id": uuid.NewString(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 starting workflow, got %d: %s", rec.Code, rec.Body.String())
	}

	var started struct {
		ID   string `json:"id"`
		Step string `json:"step"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.Step != string(workflow.StepDataCollection) {
		t.Fatalf("expected new workflow in data collection, got %q", started.Step)
	}

	base := "/workflows/" + started.ID + "/actions/"
	for _, step := range []struct {
		action   string
		wantStep string
	}{
		{"authorize", string(workflow.StepVendorCalls)},
		{"make_vendor_calls", string(workflow.StepDecisioning)},
		{"make_decision", string(workflow.StepComplete)},
	} {
		rec := postJSON(t, router, base+step.action, map[string]any{
			"fields": map[string]string{"full_name": "Jane Doe", "ssn": "123456789"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("action %s: expected 200, got %d: %s", step.action, rec.Code, rec.Body.String())
		}
		var resp struct {
			Step   string `json:"step"`
			Status string `json:"status"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode action response: %v", err)
		}
		if resp.Step != step.wantStep {
			t.Fatalf("action %s: expected step %q, got %q", step.action, step.wantStep, resp.Step)
		}
	}

	eventsReq := httptest.NewRequest(http.MethodGet, "/workflows/"+started.ID+"/events", nil)
	eventsRec := httptest.NewRecorder()
	router.ServeHTTP(eventsRec, eventsReq)
	if eventsRec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing events, got %d", eventsRec.Code)
	}
	var events []struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(eventsRec.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 transition events, got %d", len(events))
	}

	signalsReq := httptest.NewRequest(http.MethodGet, "/workflows/"+started.ID+"/signals", nil)
	signalsRec := httptest.NewRecorder()
	router.ServeHTTP(signalsRec, signalsReq)
	if signalsRec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing signals, got %d", signalsRec.Code)
	}
	var signals []struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(signalsRec.Body).Decode(&signals); err != nil {
		t.Fatalf("decode signals: %v", err)
	}
	if len(signals) == 0 {
		t.Fatalf("expected active risk signals after vendor calls")
	}
}

func TestIllegalActionReturnsConflict(t *testing.T) {
	router, cfg := newWorkflowRouter(t)

	rec := postJSON(t, router, "/workflows", map[string]string{
		"config_id":    cfg.ID.String(),
		"applicant_id": uuid.NewString(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var started struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}

	rec = postJSON(t, router, "/workflows/"+started.ID+"/actions/make_vendor_calls", map[string]any{})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an illegal transition, got %d", rec.Code)
	}
}

func TestWorkflowLookupErrors(t *testing.T) {
	router, _ := newWorkflowRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown workflow, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/workflows/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed workflow id, got %d", rec.Code)
	}
}
