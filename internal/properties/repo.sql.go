package properties

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// isDuplicateReference reports whether the error is the unique constraint
// on listing references.
func isDuplicateReference(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_listings_reference"
}

const listingColumns = `id, reference, title, address, city, currency, price_amount,
bedrooms, bathrooms, area_sqm, status, COALESCE(realtor_id, 0), created_at, updated_at`

// CreateListing inserts a listing.
func (r *Repository) CreateListing(ctx context.Context, listing Listing) (*Listing, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO listings
(reference, title, address, city, currency, price_amount, bedrooms, bathrooms, area_sqm, status, realtor_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, 0), $12, $13)
RETURNING id`,
		listing.Reference, listing.Title, listing.Address, listing.City, listing.Currency,
		listing.PriceAmount, listing.Bedrooms, listing.Bathrooms, listing.AreaSqm,
		listing.Status, listing.RealtorID, listing.CreatedAt, listing.UpdatedAt).
		Scan(&listing.ID)
	if err != nil {
		if isDuplicateReference(err) {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	return &listing, nil
}

// GetListing fetches a listing by ID, nil when absent.
func (r *Repository) GetListing(ctx context.Context, id int64) (*Listing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return listing, nil
}

// ListListings returns filtered listings with the total match count.
func (r *Repository) ListListings(ctx context.Context, req ListListingsRequest) ([]Listing, int, error) {
	filter := ` WHERE ($1 = '' OR lower(city) = lower($1))
AND ($2 = '' OR status = $2)
AND ($3 = 0 OR realtor_id = $3)`
	args := []any{req.City, string(req.Status), req.RealtorID}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM listings`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	offset := (req.Page - 1) * req.PerPage
	rows, err := r.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings`+filter+`
ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`, append(args, req.PerPage, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, *listing)
	}
	return listings, total, rows.Err()
}

// UpdateListing persists mutable fields of a listing.
func (r *Repository) UpdateListing(ctx context.Context, listing *Listing) error {
	tag, err := r.pool.Exec(ctx, `UPDATE listings SET
title = $2, address = $3, city = $4, currency = $5, price_amount = $6,
bedrooms = $7, bathrooms = $8, area_sqm = $9, status = $10,
realtor_id = NULLIF($11, 0), updated_at = $12
WHERE id = $1`,
		listing.ID, listing.Title, listing.Address, listing.City, listing.Currency,
		listing.PriceAmount, listing.Bedrooms, listing.Bathrooms, listing.AreaSqm,
		listing.Status, listing.RealtorID, listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

// DeleteListing removes a listing by ID.
func (r *Repository) DeleteListing(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

func scanListing(row pgx.Row) (*Listing, error) {
	var listing Listing
	err := row.Scan(&listing.ID, &listing.Reference, &listing.Title, &listing.Address, &listing.City,
		&listing.Currency, &listing.PriceAmount, &listing.Bedrooms, &listing.Bathrooms,
		&listing.AreaSqm, &listing.Status, &listing.RealtorID, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
