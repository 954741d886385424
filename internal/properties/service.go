package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the properties domain.
var (
	ErrListingNotFound    = errors.New("properties: listing not found")
	ErrDuplicateReference = errors.New("properties: listing reference already exists")
)

// RepositoryPort abstracts listing persistence.
type RepositoryPort interface {
	CreateListing(ctx context.Context, listing Listing) (*Listing, error)
	GetListing(ctx context.Context, id int64) (*Listing, error)
	ListListings(ctx context.Context, req ListListingsRequest) ([]Listing, int, error)
	UpdateListing(ctx context.Context, listing *Listing) error
	DeleteListing(ctx context.Context, id int64) error
}

// Service orchestrates listing operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateListing validates input and persists a new listing.
func (s *Service) CreateListing(ctx context.Context, input CreateListingInput) (*Listing, error) {
	reference := strings.ToUpper(strings.TrimSpace(input.Reference))
	if reference == "" {
		return nil, errors.New("properties: reference required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("properties: title required")
	}
	if input.PriceAmount <= 0 {
		return nil, errors.New("properties: price must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	listing := Listing{
		Reference:   reference,
		Title:       strings.TrimSpace(input.Title),
		Address:     strings.TrimSpace(input.Address),
		City:        strings.TrimSpace(input.City),
		Currency:    currency,
		PriceAmount: input.PriceAmount,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		AreaSqm:     input.AreaSqm,
		Status:      StatusAvailable,
		RealtorID:   input.RealtorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.repo.CreateListing(ctx, listing)
}

// GetListing fetches a listing by ID.
func (s *Service) GetListing(ctx context.Context, id int64) (*Listing, error) {
	listing, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	return listing, nil
}

// ListListings returns listings matching the filters with a total count.
func (s *Service) ListListings(ctx context.Context, req ListListingsRequest) ([]Listing, int, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("properties: unknown status %q", req.Status)
	}
	return s.repo.ListListings(ctx, req)
}

// UpdateListing applies mutable fields to an existing listing.
func (s *Service) UpdateListing(ctx context.Context, input UpdateListingInput) (*Listing, error) {
	listing, err := s.repo.GetListing(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if input.PriceAmount <= 0 {
		return nil, errors.New("properties: price must be positive")
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, fmt.Errorf("properties: unknown status %q", input.Status)
	}

	listing.Title = strings.TrimSpace(input.Title)
	listing.Address = strings.TrimSpace(input.Address)
	listing.City = strings.TrimSpace(input.City)
	if currency := strings.ToUpper(strings.TrimSpace(input.Currency)); currency != "" {
		listing.Currency = currency
	}
	listing.PriceAmount = input.PriceAmount
	listing.Bedrooms = input.Bedrooms
	listing.Bathrooms = input.Bathrooms
	listing.AreaSqm = input.AreaSqm
	if input.Status != "" {
		listing.Status = input.Status
	}
	if input.RealtorID != 0 {
		listing.RealtorID = input.RealtorID
	}
	listing.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	return listing, nil
}

// DeleteListing removes a listing.
func (s *Service) DeleteListing(ctx context.Context, id int64) error {
	return s.repo.DeleteListing(ctx, id)
}
