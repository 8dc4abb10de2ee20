package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"digistore-backend/internal/domains/catalog/model"
	"digistore-backend/pkg/database"
)

type postgresCatalogRepository struct {
	pool *pgxpool.Pool
	// codeKey is the pgcrypto symmetric key; payloads are encrypted and
	// decrypted inside postgres, the pool never sees ciphertext handling.
	codeKey string
}

func NewPostgresCatalogRepository(pool *pgxpool.Pool, codeKey string) RepositoryInterface {
	return &postgresCatalogRepository{pool: pool, codeKey: codeKey}
}

// =====================================================
// TRANSACTION MANAGEMENT
// =====================================================

func (r *postgresCatalogRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *postgresCatalogRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}

func (r *postgresCatalogRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(ctx)
}

// =====================================================
// PRODUCTS
// =====================================================

const productColumns = `
	id, kind, name, slug, description, image_url,
	price_jod, price_usd, original_price_jod, original_price_usd,
	stock_count, has_variants,
	requires_email, requires_password, requires_phone,
	is_active, created_at, updated_at
`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Kind, &p.Name, &p.Slug, &p.Description, &p.ImageURL,
		&p.PriceJOD, &p.PriceUSD, &p.OriginalPriceJOD, &p.OriginalPriceUSD,
		&p.StockCount, &p.HasVariants,
		&p.RequiresEmail, &p.RequiresPassword, &p.RequiresPhone,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresCatalogRepository) CreateProduct(ctx context.Context, product *model.Product) error {
	query := `
		INSERT INTO products (
			id, kind, name, slug, description, image_url,
			price_jod, price_usd, original_price_jod, original_price_usd,
			stock_count, has_variants,
			requires_email, requires_password, requires_phone, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Kind, product.Name, product.Slug,
		product.Description, product.ImageURL,
		product.PriceJOD, product.PriceUSD,
		product.OriginalPriceJOD, product.OriginalPriceUSD,
		product.StockCount, product.HasVariants,
		product.RequiresEmail, product.RequiresPassword, product.RequiresPhone,
		product.IsActive,
	).Scan(&product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return model.ErrSlugExists
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresCatalogRepository) UpdateProduct(ctx context.Context, product *model.Product) error {
	query := `
		UPDATE products SET
			name = $2, description = $3, image_url = $4,
			price_jod = $5, price_usd = $6,
			original_price_jod = $7, original_price_usd = $8,
			requires_email = $9, requires_password = $10, requires_phone = $11,
			is_active = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.ImageURL,
		product.PriceJOD, product.PriceUSD,
		product.OriginalPriceJOD, product.OriginalPriceUSD,
		product.RequiresEmail, product.RequiresPassword, product.RequiresPhone,
		product.IsActive,
	).Scan(&product.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *postgresCatalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (r *postgresCatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	product, err := scanProduct(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by slug: %w", err)
	}
	return product, nil
}

func (r *postgresCatalogRepository) GetProductWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	product, err := scanProduct(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return product, nil
}

func (r *postgresCatalogRepository) ListProducts(ctx context.Context, filter model.ListFilter, page, limit int) ([]model.Product, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	argn := 0

	if filter.OnlyActive {
		where += ` AND is_active = true`
	}
	if filter.Kind != "" {
		argn++
		where += fmt.Sprintf(` AND kind = $%d`, argn)
		args = append(args, filter.Kind)
	}
	if filter.Search != "" {
		argn++
		where += fmt.Sprintf(` AND name ILIKE $%d`, argn)
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM products %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, productColumns, where, argn+1, argn+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// =====================================================
// VARIANTS
// =====================================================

const variantColumns = `
	id, product_id, name, sku, price_jod, price_usd,
	stock_count, is_active, created_at, updated_at
`

func scanVariant(row pgx.Row) (*model.Variant, error) {
	var v model.Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.PriceJOD, &v.PriceUSD,
		&v.StockCount, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *postgresCatalogRepository) CreateVariant(ctx context.Context, variant *model.Variant) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO product_variants (
				id, product_id, name, sku, price_jod, price_usd, stock_count, is_active
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			variant.ID, variant.ProductID, variant.Name, variant.SKU,
			variant.PriceJOD, variant.PriceUSD, variant.StockCount, variant.IsActive,
		).Scan(&variant.CreatedAt, &variant.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				if pgErr.Code == "23505" { // unique_violation
					return model.ErrSKUExists
				}
				if pgErr.Code == "23503" { // foreign_key_violation
					return model.ErrProductNotFound
				}
			}
			return fmt.Errorf("failed to insert variant: %w", err)
		}

		_, err = tx.Exec(ctx, `UPDATE products SET has_variants = true, updated_at = now() WHERE id = $1`, variant.ProductID)
		if err != nil {
			return fmt.Errorf("failed to flag product variants: %w", err)
		}
		return nil
	})
}

func (r *postgresCatalogRepository) GetVariantByID(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`

	variant, err := scanVariant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return variant, nil
}

func (r *postgresCatalogRepository) GetVariantWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1 FOR UPDATE`

	variant, err := scanVariant(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to lock variant: %w", err)
	}
	return variant, nil
}

func (r *postgresCatalogRepository) ListVariants(ctx context.Context, productID uuid.UUID) ([]model.Variant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE product_id = $1 ORDER BY price_jod ASC`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	variants := make([]model.Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, *v)
	}
	return variants, rows.Err()
}

// =====================================================
// CODE POOL
// =====================================================

func (r *postgresCatalogRepository) AddCodes(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, payloads []string) (int, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (int, error) {
		batch := &pgx.Batch{}
		for _, payload := range payloads {
			batch.Queue(`
				INSERT INTO product_codes (id, product_id, variant_id, payload_enc, state)
				VALUES ($1, $2, $3, pgp_sym_encrypt($4, $5), 'available')
			`, uuid.New(), productID, variantID, payload, r.codeKey)
		}

		results := tx.SendBatch(ctx, batch)
		for range payloads {
			if _, err := results.Exec(); err != nil {
				results.Close()
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
					return 0, model.ErrProductNotFound
				}
				return 0, fmt.Errorf("failed to insert code: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return 0, fmt.Errorf("failed to close batch: %w", err)
		}

		return r.bumpStock(ctx, tx, productID, variantID, len(payloads))
	})
}

func (r *postgresCatalogRepository) ReserveCodesWithTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, variantID *uuid.UUID, orderID uuid.UUID, qty int) (int, error) {
	// Plain FOR UPDATE, not SKIP LOCKED: a buyer racing for the same codes
	// must block and then observe the committed claim, so losers fail with
	// a truthful out-of-stock instead of silently claiming deeper rows that
	// the stock counter said were gone.
	query := `
		SELECT id FROM product_codes
		WHERE product_id = $1
		  AND variant_id IS NOT DISTINCT FROM $2
		  AND state = 'available'
		ORDER BY created_at ASC
		LIMIT $3
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, productID, variantID, qty)
	if err != nil {
		return 0, fmt.Errorf("failed to lock codes: %w", err)
	}

	ids := make([]uuid.UUID, 0, qty)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan code id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read locked codes: %w", err)
	}

	if len(ids) < qty {
		return 0, model.ErrInsufficientStock
	}

	_, err = tx.Exec(ctx, `
		UPDATE product_codes
		SET state = 'reserved', order_id = $2
		WHERE id = ANY($1)
	`, ids, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve codes: %w", err)
	}

	return r.bumpStock(ctx, tx, productID, variantID, -qty)
}

func (r *postgresCatalogRepository) ReleaseCodesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	rows, err := tx.Query(ctx, `
		UPDATE product_codes
		SET state = 'available', order_id = NULL
		WHERE order_id = $1 AND state = 'reserved'
		RETURNING product_id, variant_id
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to release codes: %w", err)
	}

	type slot struct {
		productID uuid.UUID
		variantID uuid.UUID
		hasVar    bool
	}
	released := map[slot]int{}
	for rows.Next() {
		var productID uuid.UUID
		var variantID *uuid.UUID
		if err := rows.Scan(&productID, &variantID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan released code: %w", err)
		}
		s := slot{productID: productID}
		if variantID != nil {
			s.variantID = *variantID
			s.hasVar = true
		}
		released[s]++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read released codes: %w", err)
	}

	for s, n := range released {
		var variantID *uuid.UUID
		if s.hasVar {
			v := s.variantID
			variantID = &v
		}
		if _, err := r.bumpStock(ctx, tx, s.productID, variantID, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresCatalogRepository) RevealCodesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.Code, error) {
	query := `
		UPDATE product_codes
		SET state = 'revealed', revealed_at = now()
		WHERE order_id = $1 AND state = 'reserved'
		RETURNING id, product_id, variant_id,
			pgp_sym_decrypt(payload_enc, $2), order_id, revealed_at, created_at
	`

	rows, err := tx.Query(ctx, query, orderID, r.codeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to reveal codes: %w", err)
	}
	defer rows.Close()

	return r.scanRevealed(rows)
}

func (r *postgresCatalogRepository) GetRevealedCodes(ctx context.Context, orderID uuid.UUID) ([]model.Code, error) {
	query := `
		SELECT id, product_id, variant_id,
			pgp_sym_decrypt(payload_enc, $2), order_id, revealed_at, created_at
		FROM product_codes
		WHERE order_id = $1 AND state = 'revealed'
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID, r.codeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get revealed codes: %w", err)
	}
	defer rows.Close()

	return r.scanRevealed(rows)
}

func (r *postgresCatalogRepository) scanRevealed(rows pgx.Rows) ([]model.Code, error) {
	codes := make([]model.Code, 0)
	for rows.Next() {
		var c model.Code
		if err := rows.Scan(&c.ID, &c.ProductID, &c.VariantID, &c.Payload, &c.OrderID, &c.RevealedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revealed code: %w", err)
		}
		c.State = model.CodeStateRevealed
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// bumpStock adjusts the denormalized counter and returns the remaining count
// for the slot the codes came from (variant when set, product otherwise).
func (r *postgresCatalogRepository) bumpStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, variantID *uuid.UUID, delta int) (int, error) {
	var remaining int

	if variantID != nil {
		err := tx.QueryRow(ctx, `
			UPDATE product_variants
			SET stock_count = stock_count + $2, updated_at = now()
			WHERE id = $1
			RETURNING stock_count
		`, *variantID, delta).Scan(&remaining)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, model.ErrVariantNotFound
			}
			return 0, fmt.Errorf("failed to adjust variant stock: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE products SET stock_count = stock_count + $2, updated_at = now() WHERE id = $1
		`, productID, delta)
		if err != nil {
			return 0, fmt.Errorf("failed to adjust product stock: %w", err)
		}
		return remaining, nil
	}

	err := tx.QueryRow(ctx, `
		UPDATE products
		SET stock_count = stock_count + $2, updated_at = now()
		WHERE id = $1
		RETURNING stock_count
	`, productID, delta).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to adjust product stock: %w", err)
	}
	return remaining, nil
}

// =====================================================
// RECONCILIATION
// =====================================================

func (r *postgresCatalogRepository) ReconcileStockCounts(ctx context.Context) (*model.ReconcileResult, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.ReconcileResult, error) {
		return r.reconcileStockCounts(ctx, tx)
	})
}

func (r *postgresCatalogRepository) reconcileStockCounts(ctx context.Context, tx pgx.Tx) (*model.ReconcileResult, error) {
	result := &model.ReconcileResult{Drifts: make([]model.StockDrift, 0)}

	err := tx.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM products WHERE kind = 'digital_code')
		     + (SELECT COUNT(*) FROM product_variants)
	`).Scan(&result.Checked)
	if err != nil {
		return nil, fmt.Errorf("failed to count reconcile targets: %w", err)
	}

	// Products: recount includes codes held by variants, the product counter
	// is the aggregate over all its slots.
	rows, err := tx.Query(ctx, `
		UPDATE products p
		SET stock_count = sub.counted, updated_at = now()
		FROM (
			SELECT p2.id, p2.stock_count AS stored, COALESCE(c.counted, 0) AS counted
			FROM products p2
			LEFT JOIN (
				SELECT product_id, COUNT(*) AS counted
				FROM product_codes
				WHERE state = 'available'
				GROUP BY product_id
			) c ON c.product_id = p2.id
			WHERE p2.kind = 'digital_code'
		) sub
		WHERE p.id = sub.id AND p.stock_count <> sub.counted
		RETURNING p.id, sub.stored, sub.counted
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile product stock: %w", err)
	}
	for rows.Next() {
		var d model.StockDrift
		if err := rows.Scan(&d.ProductID, &d.Stored, &d.Counted); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product drift: %w", err)
		}
		result.Drifts = append(result.Drifts, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product drifts: %w", err)
	}

	rows, err = tx.Query(ctx, `
		UPDATE product_variants v
		SET stock_count = sub.counted, updated_at = now()
		FROM (
			SELECT v2.id, v2.product_id, v2.stock_count AS stored, COALESCE(c.counted, 0) AS counted
			FROM product_variants v2
			LEFT JOIN (
				SELECT variant_id, COUNT(*) AS counted
				FROM product_codes
				WHERE state = 'available' AND variant_id IS NOT NULL
				GROUP BY variant_id
			) c ON c.variant_id = v2.id
		) sub
		WHERE v.id = sub.id AND v.stock_count <> sub.counted
		RETURNING sub.product_id, v.id, sub.stored, sub.counted
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile variant stock: %w", err)
	}
	for rows.Next() {
		var d model.StockDrift
		var variantID uuid.UUID
		if err := rows.Scan(&d.ProductID, &variantID, &d.Stored, &d.Counted); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan variant drift: %w", err)
		}
		d.VariantID = &variantID
		result.Drifts = append(result.Drifts, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read variant drifts: %w", err)
	}

	return result, nil
}
