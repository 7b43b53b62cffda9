package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/api"
	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/internal/scenario"
	"github.com/KatTate/katalyst-franchise-planner/internal/store"
	"github.com/KatTate/katalyst-franchise-planner/pkg/constants"
	"github.com/KatTate/katalyst-franchise-planner/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures the plan handler.
type Options struct {
	Logger      *zap.Logger
	MaxBodySize int64
	Version     string
	BrandID     string
	Brand       plan.BrandDefaults
	Now         func() time.Time
}

type handler struct {
	logger      *zap.Logger
	repo        store.PlanRepository
	projector   engine.Projector
	maxBodySize int64
	version     string
	brandID     string
	brand       plan.BrandDefaults
	now         func() time.Time
}

// NewHandler constructs the HTTP handler that serves the plan API.
func NewHandler(repo store.PlanRepository, projector engine.Projector, opts Options) http.Handler {
	h := &handler{
		logger:      opts.Logger,
		repo:        repo,
		projector:   projector,
		maxBodySize: opts.MaxBodySize,
		version:     strings.TrimSpace(opts.Version),
		brandID:     opts.BrandID,
		brand:       opts.Brand,
		now:         opts.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = constants.DefaultMaxBodySizeBytes
	}
	if h.version == "" {
		h.version = "dev"
	}
	if h.now == nil {
		h.now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /plans", h.handleCreatePlan)
	mux.HandleFunc("GET /plans/{id}", h.handleGetPlan)
	mux.HandleFunc("PATCH /plans/{id}", h.handlePatchPlan)
	mux.HandleFunc("GET /plans/{id}/outputs", h.handleGetOutputs)
	mux.HandleFunc("GET /plans/{id}/scenarios", h.handleGetScenarios)
	mux.HandleFunc("PUT /plans/{id}/startup-costs", h.handlePutStartupCosts)
	mux.HandleFunc("POST /plans/{id}/startup-costs/reset", h.handleResetStartupCosts)
	mux.HandleFunc("GET /version", h.handleVersion)
	return mux
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *handler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCreatePlan"

	var req api.CreatePlanRequest
	if !h.decodeBody(w, r, &req, op) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, "name is required", op)
		return
	}

	now := h.now().UTC()
	p := plan.Plan{
		ID:              uuid.NewString(),
		Name:            name,
		BrandID:         h.brandID,
		StartDate:       req.StartDate,
		FinancialInputs: plan.NewFromBrandDefaults(h.brand),
		StartupCosts:    assignIDs(h.brand.DefaultStartupCosts()),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.repo.Create(r.Context(), &p); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to create plan: %v", err), op)
		return
	}

	h.logRequest(r, op, p.ID)
	h.writeData(w, http.StatusCreated, p)
}

func (h *handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPlan(w, r, "server.handleGetPlan")
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, p)
}

// handlePatchPlan replaces the fields present in the body. A present input
// document replaces the stored one wholesale.
func (h *handler) handlePatchPlan(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePatchPlan"

	var patch api.PlanPatch
	if !h.decodeBody(w, r, &patch, op) {
		return
	}
	p, ok := h.loadPlan(w, r, op)
	if !ok {
		return
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			h.respondErrorWithOp(w, http.StatusUnprocessableEntity, "name must not be empty", op)
			return
		}
		p.Name = name
	}
	if patch.StartDate != nil {
		p.StartDate = patch.StartDate
	}
	if patch.FinancialInputs != nil {
		if problems := validateInputs(*patch.FinancialInputs); len(problems) > 0 {
			h.respondErrorWithOp(w, http.StatusUnprocessableEntity, strings.Join(problems, "; "), op)
			return
		}
		p.FinancialInputs = *patch.FinancialInputs
	}
	p.UpdatedAt = h.now().UTC()

	if err := h.repo.Update(r.Context(), p); err != nil {
		h.respondStoreError(w, err, op)
		return
	}

	h.logRequest(r, op, p.ID)
	h.writeData(w, http.StatusOK, p)
}

func (h *handler) handleGetOutputs(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetOutputs"

	p, ok := h.loadPlan(w, r, op)
	if !ok {
		return
	}
	out, err := h.projector.Project(r.Context(), *p, engine.Unadjusted)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to project plan: %v", err), op)
		return
	}
	h.writeData(w, http.StatusOK, out)
}

func (h *handler) handleGetScenarios(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetScenarios"

	p, ok := h.loadPlan(w, r, op)
	if !ok {
		return
	}
	outputs, err := scenario.Derive(r.Context(), h.logger, h.projector, *p)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to derive scenarios: %v", err), op)
		return
	}
	h.writeData(w, http.StatusOK, outputs)
}

func (h *handler) handlePutStartupCosts(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePutStartupCosts"

	var items []plan.StartupCostLineItem
	if !h.decodeBody(w, r, &items, op) {
		return
	}
	if problems := validateStartupCosts(items); len(problems) > 0 {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, strings.Join(problems, "; "), op)
		return
	}
	items = assignIDs(items)

	id := r.PathValue("id")
	if err := h.repo.ReplaceStartupCosts(r.Context(), id, items, h.now().UTC()); err != nil {
		h.respondStoreError(w, err, op)
		return
	}

	h.logRequest(r, op, id)
	h.writeData(w, http.StatusOK, items)
}

func (h *handler) handleResetStartupCosts(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleResetStartupCosts"

	items := assignIDs(h.brand.DefaultStartupCosts())
	id := r.PathValue("id")
	if err := h.repo.ReplaceStartupCosts(r.Context(), id, items, h.now().UTC()); err != nil {
		h.respondStoreError(w, err, op)
		return
	}

	h.logRequest(r, op, id)
	h.writeData(w, http.StatusOK, items)
}

func (h *handler) loadPlan(w http.ResponseWriter, r *http.Request, op string) (*plan.Plan, bool) {
	p, err := h.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondStoreError(w, err, op)
		return nil, false
	}
	return p, true
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, target any, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) logRequest(r *http.Request, op, planID string) {
	opts := api.OptionsFromRequest(r)
	h.logger.Info("plan updated",
		zap.String("op", op),
		zap.String("plan", planID),
		zap.String("role", string(opts.Role)),
		zap.Bool("demo", opts.DemoMode),
	)
}

func (h *handler) respondStoreError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, store.ErrPlanNotFound) {
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
		return
	}
	h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	log := h.logger.Warn
	if status >= http.StatusInternalServerError {
		log = h.logger.Error
	}
	log("plan request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, api.ErrorBody{Error: msg})
}

func (h *handler) writeData(w http.ResponseWriter, status int, payload any) {
	h.writeJSON(w, status, api.Envelope[any]{Data: payload})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

// assignIDs gives every item without an id a fresh one.
func assignIDs(items []plan.StartupCostLineItem) []plan.StartupCostLineItem {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
	return items
}

func validateStartupCosts(items []plan.StartupCostLineItem) []string {
	var problems []string
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		problems = append(problems, validation.ValidateStartupCost(strings.TrimSpace(item.Label), item.Amount)...)
		if item.ID == "" {
			continue
		}
		if seen[item.ID] {
			problems = append(problems, fmt.Sprintf("Startup cost id '%s' is used more than once", item.ID))
		}
		seen[item.ID] = true
	}
	return problems
}

func validateInputs(in plan.FinancialInputs) []string {
	var problems []string
	for _, category := range plan.Categories {
		if in.Group(category) == nil {
			problems = append(problems, fmt.Sprintf("Category '%s' is missing", category))
		}
	}
	return problems
}
