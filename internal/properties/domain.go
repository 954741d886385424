package properties

import "time"

// ListingStatus tracks where a listing sits in its sales lifecycle.
type ListingStatus string

const (
	StatusAvailable  ListingStatus = "available"
	StatusUnderOffer ListingStatus = "under_offer"
	StatusSold       ListingStatus = "sold"
)

// Valid reports whether the status is one of the known values.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusUnderOffer, StatusSold:
		return true
	}
	return false
}

// Listing is a property offered through the brokerage.
type Listing struct {
	ID          int64
	Reference   string
	Title       string
	Address     string
	City        string
	Currency    string
	PriceAmount int64
	Bedrooms    int
	Bathrooms   int
	AreaSqm     float64
	Status      ListingStatus
	RealtorID   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateListingInput carries the fields accepted on listing creation.
type CreateListingInput struct {
	Reference   string
	Title       string
	Address     string
	City        string
	Currency    string
	PriceAmount int64
	Bedrooms    int
	Bathrooms   int
	AreaSqm     float64
	RealtorID   int64
}

// UpdateListingInput carries the mutable listing fields.
type UpdateListingInput struct {
	ID          int64
	Title       string
	Address     string
	City        string
	Currency    string
	PriceAmount int64
	Bedrooms    int
	Bathrooms   int
	AreaSqm     float64
	Status      ListingStatus
	RealtorID   int64
}

// ListListingsRequest filters and paginates listing queries.
type ListListingsRequest struct {
	City      string
	Status    ListingStatus
	RealtorID int64
	Page      int
	PerPage   int
}
