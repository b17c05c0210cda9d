package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/dulceria-api/internal/discount"
)

var (
	// ErrNotFound is returned when a product or variant does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrConflict is returned when a unique slug or SKU is already taken.
	ErrConflict = errors.New("catalog: conflict")
)

// Store persists products and variants.
type Store interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (Product, error)
	CreateVariant(ctx context.Context, v Variant) (Variant, error)
	GetVariant(ctx context.Context, id uuid.UUID) (Variant, error)
	ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	UpdateVariantDiscounts(ctx context.Context, id uuid.UUID, fixed *discount.FixedDiscount, tiered *discount.TieredDiscount) (Variant, error)
}

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is a Postgres-backed Store. Discount sub-documents live in JSONB columns.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

const productColumns = `id, name, slug, description, category, color, active, created_at, updated_at`

const variantColumns = `id, product_id, sku, name, price, stock, low_stock_threshold, active,
	fixed_discount, tiered_discount, created_at, updated_at`

// CreateProduct inserts p and returns the stored row.
func (s *PGStore) CreateProduct(ctx context.Context, p Product) (Product, error) {
	row := s.db.QueryRow(ctx, `INSERT INTO products (id, name, slug, description, category, color, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		p.ID, p.Name, p.Slug, p.Description, p.Category, p.Color, p.Active)
	out, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError("insert product", err)
	}
	return out, nil
}

// GetProductBySlug loads a product by its slug.
func (s *PGStore) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	out, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError("get product by slug", err)
	}
	return out, nil
}

// GetProductByID loads a product by id.
func (s *PGStore) GetProductByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	out, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError("get product", err)
	}
	return out, nil
}

// CreateVariant inserts v and returns the stored row.
func (s *PGStore) CreateVariant(ctx context.Context, v Variant) (Variant, error) {
	fixed, err := jsonOrNil(v.FixedDiscount)
	if err != nil {
		return Variant{}, fmt.Errorf("encode fixed discount: %w", err)
	}
	tiered, err := jsonOrNil(v.TieredDiscount)
	if err != nil {
		return Variant{}, fmt.Errorf("encode tiered discount: %w", err)
	}
	row := s.db.QueryRow(ctx, `INSERT INTO variants
		(id, product_id, sku, name, price, stock, low_stock_threshold, active, fixed_discount, tiered_discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+variantColumns,
		v.ID, v.ProductID, v.SKU, v.Name, v.Price, v.Stock, v.LowStockThreshold, v.Active, fixed, tiered)
	out, err := scanVariant(row)
	if err != nil {
		return Variant{}, mapPGError("insert variant", err)
	}
	return out, nil
}

// GetVariant loads a variant by id.
func (s *PGStore) GetVariant(ctx context.Context, id uuid.UUID) (Variant, error) {
	row := s.db.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id = $1`, id)
	out, err := scanVariant(row)
	if err != nil {
		return Variant{}, mapPGError("get variant", err)
	}
	return out, nil
}

// ListVariantsByProduct returns a product's variants in creation order.
func (s *PGStore) ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]Variant, error) {
	rows, err := s.db.Query(ctx, `SELECT `+variantColumns+` FROM variants
		WHERE product_id = $1 ORDER BY created_at, sku`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()
	var out []Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return out, nil
}

// UpdateVariantDiscounts replaces both discount sub-documents.
func (s *PGStore) UpdateVariantDiscounts(ctx context.Context, id uuid.UUID, fixed *discount.FixedDiscount, tiered *discount.TieredDiscount) (Variant, error) {
	fixedRaw, err := jsonOrNil(fixed)
	if err != nil {
		return Variant{}, fmt.Errorf("encode fixed discount: %w", err)
	}
	tieredRaw, err := jsonOrNil(tiered)
	if err != nil {
		return Variant{}, fmt.Errorf("encode tiered discount: %w", err)
	}
	row := s.db.QueryRow(ctx, `UPDATE variants
		SET fixed_discount = $2, tiered_discount = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+variantColumns, id, fixedRaw, tieredRaw)
	out, err := scanVariant(row)
	if err != nil {
		return Variant{}, mapPGError("update variant discounts", err)
	}
	return out, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.Color, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanVariant(row pgx.Row) (Variant, error) {
	var (
		v         Variant
		threshold *int32
		fixedRaw  []byte
		tieredRaw []byte
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.Stock, &threshold, &v.Active,
		&fixedRaw, &tieredRaw, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return Variant{}, err
	}
	if threshold != nil {
		t := int(*threshold)
		v.LowStockThreshold = &t
	}
	if len(fixedRaw) > 0 {
		var fd discount.FixedDiscount
		if err := json.Unmarshal(fixedRaw, &fd); err != nil {
			return Variant{}, fmt.Errorf("decode fixed discount: %w", err)
		}
		v.FixedDiscount = &fd
	}
	if len(tieredRaw) > 0 {
		var td discount.TieredDiscount
		if err := json.Unmarshal(tieredRaw, &td); err != nil {
			return Variant{}, fmt.Errorf("decode tiered discount: %w", err)
		}
		v.TieredDiscount = &td
	}
	return v, nil
}

func jsonOrNil[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func mapPGError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
