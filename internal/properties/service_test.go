package properties

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryListingRepo struct {
	listings map[int64]*Listing
	nextID   int64
}

func newMemoryListingRepo() *memoryListingRepo {
	return &memoryListingRepo{listings: make(map[int64]*Listing)}
}

func (r *memoryListingRepo) CreateListing(ctx context.Context, listing Listing) (*Listing, error) {
	for _, existing := range r.listings {
		if existing.Reference == listing.Reference {
			return nil, ErrDuplicateReference
		}
	}
	r.nextID++
	listing.ID = r.nextID
	stored := listing
	r.listings[listing.ID] = &stored
	return &listing, nil
}

func (r *memoryListingRepo) GetListing(ctx context.Context, id int64) (*Listing, error) {
	listing, ok := r.listings[id]
	if !ok {
		return nil, nil
	}
	clone := *listing
	return &clone, nil
}

func (r *memoryListingRepo) ListListings(ctx context.Context, req ListListingsRequest) ([]Listing, int, error) {
	var out []Listing
	for _, listing := range r.listings {
		if req.City != "" && !strings.EqualFold(listing.City, req.City) {
			continue
		}
		if req.Status != "" && listing.Status != req.Status {
			continue
		}
		if req.RealtorID != 0 && listing.RealtorID != req.RealtorID {
			continue
		}
		out = append(out, *listing)
	}
	return out, len(out), nil
}

func (r *memoryListingRepo) UpdateListing(ctx context.Context, listing *Listing) error {
	if _, ok := r.listings[listing.ID]; !ok {
		return ErrListingNotFound
	}
	stored := *listing
	r.listings[listing.ID] = &stored
	return nil
}

func (r *memoryListingRepo) DeleteListing(ctx context.Context, id int64) error {
	if _, ok := r.listings[id]; !ok {
		return ErrListingNotFound
	}
	delete(r.listings, id)
	return nil
}

func TestCreateListingNormalizes(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryListingRepo())

	listing, err := svc.CreateListing(ctx, CreateListingInput{
		Reference:   "  lis-0042 ",
		Title:       "Sunny 3BR in Riverside",
		City:        "Austin",
		Currency:    "usd",
		PriceAmount: 45_000_000,
		Bedrooms:    3,
		Bathrooms:   2,
		AreaSqm:     145.5,
	})
	require.NoError(t, err)
	require.Equal(t, "LIS-0042", listing.Reference)
	require.Equal(t, "USD", listing.Currency)
	require.Equal(t, StatusAvailable, listing.Status)
	require.NotZero(t, listing.ID)
}

func TestCreateListingDuplicateReference(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryListingRepo())

	_, err := svc.CreateListing(ctx, CreateListingInput{Reference: "LIS-1", Title: "First", PriceAmount: 100})
	require.NoError(t, err)

	_, err = svc.CreateListing(ctx, CreateListingInput{Reference: "lis-1", Title: "Second", PriceAmount: 100})
	require.ErrorIs(t, err, ErrDuplicateReference)
}

func TestCreateListingValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryListingRepo())

	_, err := svc.CreateListing(ctx, CreateListingInput{Title: "No ref", PriceAmount: 100})
	require.Error(t, err)
	require.Contains(t, err.Error(), "reference required")

	_, err = svc.CreateListing(ctx, CreateListingInput{Reference: "LIS-2", Title: "Free house"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "price must be positive")
}

func TestUpdateListingStatusTransition(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryListingRepo())

	listing, err := svc.CreateListing(ctx, CreateListingInput{Reference: "LIS-3", Title: "Loft", PriceAmount: 1000})
	require.NoError(t, err)

	updated, err := svc.UpdateListing(ctx, UpdateListingInput{
		ID:          listing.ID,
		Title:       "Loft downtown",
		PriceAmount: 1200,
		Status:      StatusUnderOffer,
	})
	require.NoError(t, err)
	require.Equal(t, StatusUnderOffer, updated.Status)
	require.Equal(t, int64(1200), updated.PriceAmount)
	// Reference is immutable through updates.
	require.Equal(t, "LIS-3", updated.Reference)
}

func TestUpdateListingUnknownStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryListingRepo())

	listing, err := svc.CreateListing(ctx, CreateListingInput{Reference: "LIS-4", Title: "Villa", PriceAmount: 1000})
	require.NoError(t, err)

	_, err = svc.UpdateListing(ctx, UpdateListingInput{ID: listing.ID, Title: "Villa", PriceAmount: 1000, Status: "haunted"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown status")
}

func TestUpdateListingNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryListingRepo())

	_, err := svc.UpdateListing(ctx, UpdateListingInput{ID: 999, Title: "Ghost", PriceAmount: 1})
	require.ErrorIs(t, err, ErrListingNotFound)
}

func TestDeleteListing(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryListingRepo()
	svc := NewService(repo)

	listing, err := svc.CreateListing(ctx, CreateListingInput{Reference: "LIS-5", Title: "Cottage", PriceAmount: 500})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteListing(ctx, listing.ID))
	require.ErrorIs(t, svc.DeleteListing(ctx, listing.ID), ErrListingNotFound)
}

func TestListListingsFilters(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryListingRepo())

	_, err := svc.CreateListing(ctx, CreateListingInput{Reference: "LIS-6", Title: "A", City: "Austin", PriceAmount: 1, RealtorID: 1})
	require.NoError(t, err)
	_, err = svc.CreateListing(ctx, CreateListingInput{Reference: "LIS-7", Title: "B", City: "Dallas", PriceAmount: 1, RealtorID: 2})
	require.NoError(t, err)

	listings, total, err := svc.ListListings(ctx, ListListingsRequest{City: "austin"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "LIS-6", listings[0].Reference)

	_, _, err = svc.ListListings(ctx, ListListingsRequest{Status: "bogus"})
	require.Error(t, err)
}
