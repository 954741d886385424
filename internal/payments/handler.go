package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/estateman/estateman/internal/authz"
	"github.com/estateman/estateman/internal/platform/httpx"
	"github.com/estateman/estateman/internal/shared"
)

// Handler manages payment plan endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validator: validator.New()}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(shared.PermPaymentsRead))
		r.Get("/plans", h.listPlans)
		r.Get("/plans/{id}", h.getPlan)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAll(shared.PermPaymentsEdit))
		r.Post("/plans", h.createPlan)
		r.Put("/plans/{id}/totals", h.updateTotals)
		r.Post("/plans/{id}/installments/{installmentID}/pay", h.recordPayment)
	})
}

type createPlanRequest struct {
	ContractID   int64     `json:"contract_id" validate:"required"`
	BuyerName    string    `json:"buyer_name" validate:"required"`
	BuyerEmail   string    `json:"buyer_email" validate:"omitempty,email"`
	Currency     string    `json:"currency" validate:"omitempty,len=3"`
	TotalAmount  int64     `json:"total_amount" validate:"required,gt=0"`
	Installments int       `json:"installments" validate:"required,gte=1,lte=120"`
	FirstDueAt   time.Time `json:"first_due_at"`
}

type updateTotalsRequest struct {
	TotalAmount int64 `json:"total_amount" validate:"required,gt=0"`
	PaidAmount  int64 `json:"paid_amount" validate:"gte=0"`
}

type recordPaymentRequest struct {
	PaidAt time.Time `json:"paid_at"`
}

type installmentView struct {
	ID     int64      `json:"id"`
	Seq    int        `json:"seq"`
	Amount int64      `json:"amount"`
	DueAt  time.Time  `json:"due_at"`
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

type planView struct {
	ID           int64             `json:"id"`
	ContractID   int64             `json:"contract_id"`
	BuyerName    string            `json:"buyer_name"`
	BuyerEmail   string            `json:"buyer_email,omitempty"`
	Currency     string            `json:"currency"`
	TotalAmount  int64             `json:"total_amount"`
	PaidAmount   int64             `json:"paid_amount"`
	Outstanding  int64             `json:"outstanding"`
	Installments []installmentView `json:"installments,omitempty"`
	CreatedBy    int64             `json:"created_by,omitempty"`
	UpdatedBy    int64             `json:"updated_by,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type planListResponse struct {
	Plans      []planView        `json:"plans"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	contractID, _ := strconv.ParseInt(r.URL.Query().Get("contract_id"), 10, 64)

	plans, total, err := h.service.ListPlans(r.Context(), ListPlansRequest{
		ContractID: contractID,
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		h.logger.Error("list payment plans", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	views := make([]planView, 0, len(plans))
	for _, plan := range plans {
		views = append(views, toPlanView(plan))
	}
	httpx.JSON(w, http.StatusOK, planListResponse{
		Plans:      views,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid plan ID")
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "get payment plan")
		return
	}
	httpx.JSON(w, http.StatusOK, toPlanView(*plan))
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	plan, err := h.service.CreatePlan(r.Context(), CreatePlanInput{
		ContractID:   req.ContractID,
		BuyerName:    req.BuyerName,
		BuyerEmail:   req.BuyerEmail,
		Currency:     req.Currency,
		TotalAmount:  req.TotalAmount,
		Installments: req.Installments,
		FirstDueAt:   req.FirstDueAt,
		CreatedBy:    currentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err, "create payment plan")
		return
	}
	httpx.JSON(w, http.StatusCreated, toPlanView(*plan))
}

func (h *Handler) updateTotals(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid plan ID")
		return
	}
	var req updateTotalsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	plan, err := h.service.UpdateTotals(r.Context(), UpdateTotalsInput{
		PlanID:      id,
		TotalAmount: req.TotalAmount,
		PaidAmount:  req.PaidAmount,
		UpdatedBy:   currentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err, "update plan totals")
		return
	}
	httpx.JSON(w, http.StatusOK, toPlanView(*plan))
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	planID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid plan ID")
		return
	}
	installmentID, err := strconv.ParseInt(chi.URLParam(r, "installmentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid installment ID")
		return
	}
	var req recordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	plan, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		PlanID:        planID,
		InstallmentID: installmentID,
		PaidAt:        req.PaidAt,
		RecordedBy:    currentUserID(r),
	})
	if err != nil {
		h.respondServiceError(w, err, "record installment payment")
		return
	}
	httpx.JSON(w, http.StatusOK, toPlanView(*plan))
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrPlanNotFound), errors.Is(err, ErrInstallmentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	}
}

func toPlanView(plan PaymentPlan) planView {
	view := planView{
		ID:          plan.ID,
		ContractID:  plan.ContractID,
		BuyerName:   plan.BuyerName,
		BuyerEmail:  plan.BuyerEmail,
		Currency:    plan.Currency,
		TotalAmount: plan.TotalAmount,
		PaidAmount:  plan.PaidAmount,
		Outstanding: plan.Outstanding(),
		CreatedBy:   plan.CreatedBy,
		UpdatedBy:   plan.UpdatedBy,
		CreatedAt:   plan.CreatedAt,
		UpdatedAt:   plan.UpdatedAt,
	}
	for _, inst := range plan.Installments {
		view.Installments = append(view.Installments, installmentView{
			ID:     inst.ID,
			Seq:    inst.Seq,
			Amount: inst.Amount,
			DueAt:  inst.DueAt,
			Status: string(inst.Status),
			PaidAt: inst.PaidAt,
		})
	}
	return view
}

func currentUserID(r *http.Request) int64 {
	return authz.SnapshotFromContext(r.Context()).UserID
}
