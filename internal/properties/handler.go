package properties

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

// Handler manages property listing endpoints.
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

// MountRoutes registers listing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(shared.PermPropertiesRead))
		r.Get("/", h.listListings)
		r.Get("/{id}", h.getListing)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAll(shared.PermPropertiesEdit))
		r.Post("/", h.createListing)
		r.Put("/{id}", h.updateListing)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAll(shared.PermPropertiesDelete))
		r.Delete("/{id}", h.deleteListing)
	})
}

type listingRequest struct {
	Reference   string  `json:"reference" validate:"required,max=32"`
	Title       string  `json:"title" validate:"required,max=255"`
	Address     string  `json:"address" validate:"max=255"`
	City        string  `json:"city" validate:"max=128"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	PriceAmount int64   `json:"price_amount" validate:"required,gt=0"`
	Bedrooms    int     `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms   int     `json:"bathrooms" validate:"gte=0,lte=50"`
	AreaSqm     float64 `json:"area_sqm" validate:"gte=0"`
	Status      string  `json:"status" validate:"omitempty,oneof=available under_offer sold"`
	RealtorID   int64   `json:"realtor_id"`
}

type listingView struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	Title       string    `json:"title"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	Currency    string    `json:"currency"`
	PriceAmount int64     `json:"price_amount"`
	Bedrooms    int       `json:"bedrooms"`
	Bathrooms   int       `json:"bathrooms"`
	AreaSqm     float64   `json:"area_sqm"`
	Status      string    `json:"status"`
	RealtorID   int64     `json:"realtor_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type listingListResponse struct {
	Listings   []listingView     `json:"listings"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listListings(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	realtorID, _ := strconv.ParseInt(r.URL.Query().Get("realtor_id"), 10, 64)

	listings, total, err := h.service.ListListings(r.Context(), ListListingsRequest{
		City:      r.URL.Query().Get("city"),
		Status:    ListingStatus(r.URL.Query().Get("status")),
		RealtorID: realtorID,
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		h.logger.Error("list listings", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	views := make([]listingView, 0, len(listings))
	for _, listing := range listings {
		views = append(views, toListingView(listing))
	}
	httpx.JSON(w, http.StatusOK, listingListResponse{
		Listings:   views,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid listing ID")
		return
	}
	listing, err := h.service.GetListing(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "get listing")
		return
	}
	httpx.JSON(w, http.StatusOK, toListingView(*listing))
}

func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	listing, err := h.service.CreateListing(r.Context(), CreateListingInput{
		Reference:   req.Reference,
		Title:       req.Title,
		Address:     req.Address,
		City:        req.City,
		Currency:    req.Currency,
		PriceAmount: req.PriceAmount,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		RealtorID:   req.RealtorID,
	})
	if err != nil {
		h.respondServiceError(w, err, "create listing")
		return
	}
	httpx.JSON(w, http.StatusCreated, toListingView(*listing))
}

func (h *Handler) updateListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid listing ID")
		return
	}
	var req listingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	listing, err := h.service.UpdateListing(r.Context(), UpdateListingInput{
		ID:          id,
		Title:       req.Title,
		Address:     req.Address,
		City:        req.City,
		Currency:    req.Currency,
		PriceAmount: req.PriceAmount,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		Status:      ListingStatus(req.Status),
		RealtorID:   req.RealtorID,
	})
	if err != nil {
		h.respondServiceError(w, err, "update listing")
		return
	}
	httpx.JSON(w, http.StatusOK, toListingView(*listing))
}

func (h *Handler) deleteListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid listing ID")
		return
	}
	if err := h.service.DeleteListing(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "delete listing")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrListingNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateReference):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	}
}

func toListingView(listing Listing) listingView {
	return listingView{
		ID:          listing.ID,
		Reference:   listing.Reference,
		Title:       listing.Title,
		Address:     listing.Address,
		City:        listing.City,
		Currency:    listing.Currency,
		PriceAmount: listing.PriceAmount,
		Bedrooms:    listing.Bedrooms,
		Bathrooms:   listing.Bathrooms,
		AreaSqm:     listing.AreaSqm,
		Status:      string(listing.Status),
		RealtorID:   listing.RealtorID,
		CreatedAt:   listing.CreatedAt,
		UpdatedAt:   listing.UpdatedAt,
	}
}
