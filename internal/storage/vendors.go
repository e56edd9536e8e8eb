package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

const vendorColumns = `id, nom, categorie, ville, region, description, prix_a_partir_de, site_web, email`

// SaveVendor inserts or replaces a vendor record and returns its id.
func (s *Store) SaveVendor(ctx context.Context, v wedding.Vendor) (string, error) {
	if strings.TrimSpace(v.Name) == "" {
		return "", fmt.Errorf("vendor name is required")
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	var price sql.NullInt64
	if v.PriceFrom != nil {
		price = sql.NullInt64{Int64: int64(*v.PriceFrom), Valid: true}
	}

	_, err := s.exec(ctx, `
		INSERT INTO vendors (`+vendorColumns+`, ville_norm, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nom = excluded.nom,
			categorie = excluded.categorie,
			ville = excluded.ville,
			ville_norm = excluded.ville_norm,
			region = excluded.region,
			description = excluded.description,
			prix_a_partir_de = excluded.prix_a_partir_de,
			site_web = excluded.site_web,
			email = excluded.email`,
		v.ID, v.Name, v.Category, v.City, v.Region, v.Description, price, v.Website, v.Email,
		normalizeCity(v.City), formatTime(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("saving vendor %s: %w", v.ID, err)
	}
	return v.ID, nil
}

// GetVendor returns the vendor with the given id, or ErrNotFound.
func (s *Store) GetVendor(ctx context.Context, id string) (wedding.Vendor, error) {
	v, err := scanVendor(s.queryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return wedding.Vendor{}, ErrNotFound
	}
	return v, err
}

// FindVendorsByCityFragment returns at most limit vendors whose city contains
// fragment, compared case-insensitively. A blank fragment matches nothing.
func (s *Store) FindVendorsByCityFragment(ctx context.Context, fragment string, limit int) ([]wedding.Vendor, error) {
	needle := normalizeCity(fragment)
	if needle == "" || limit <= 0 {
		return []wedding.Vendor{}, nil
	}
	return s.listVendors(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE ville_norm LIKE ? ESCAPE '\' ORDER BY nom ASC, id ASC LIMIT ?`,
		"%"+escapeLike(needle)+"%", limit,
	)
}

// ListVendors returns vendors ordered by name.
func (s *Store) ListVendors(ctx context.Context, limit, offset int) ([]wedding.Vendor, error) {
	return s.listVendors(ctx,
		`SELECT `+vendorColumns+` FROM vendors ORDER BY nom ASC, id ASC LIMIT ? OFFSET ?`,
		clampLimit(limit), max(offset, 0),
	)
}

func (s *Store) listVendors(ctx context.Context, q string, args ...any) ([]wedding.Vendor, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []wedding.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

func scanVendor(r rowScanner) (wedding.Vendor, error) {
	var v wedding.Vendor
	var price sql.NullInt64
	if err := r.Scan(&v.ID, &v.Name, &v.Category, &v.City, &v.Region, &v.Description, &price, &v.Website, &v.Email); err != nil {
		return wedding.Vendor{}, err
	}
	if price.Valid {
		v.PriceFrom = wedding.IntPtr(int(price.Int64))
	}
	return v, nil
}

func normalizeCity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
