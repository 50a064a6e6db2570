package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/sqlutil"
)

const productColumns = `id::text, title, description, price_cents, image, category, stock, state, COALESCE(sku, ''), tags, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("product_repo")}
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Product, int, error) {
	var w sqlutil.Where
	if f.State != nil {
		w.Add("state = " + w.Arg(string(*f.State)))
	}
	if f.Category != "" {
		w.Add("category ILIKE " + w.Arg(sqlutil.Contains(f.Category)))
	}
	if f.Search != "" {
		p := w.Arg(sqlutil.Contains(f.Search))
		clause := fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE %[1]s)", p)
		if f.SearchSKU {
			clause += fmt.Sprintf(" OR sku ILIKE %s", p)
		}
		w.Add(clause + ")")
	}
	if f.MinPriceCents != nil {
		w.Add("price_cents >= " + w.Arg(*f.MinPriceCents))
	}
	if f.MaxPriceCents != nil {
		w.Add("price_cents <= " + w.Arg(*f.MaxPriceCents))
	}
	if f.InStockOnly {
		w.Add("stock > 0")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM products "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		r.logger.Error("count products", zap.Error(err))
		return nil, 0, err
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	q := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s, id %s LIMIT %s OFFSET %s`,
		productColumns, w.SQL(), sortColumn(f.Sort), dir, dir, w.Arg(f.Limit), w.Arg(f.Offset))

	rows, err := r.pool.Query(ctx, q, w.Args()...)
	if err != nil {
		r.logger.Error("list products", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	result := make([]domain.Product, 0, f.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("list products rows", zap.Error(err))
		return nil, 0, err
	}
	r.logger.Debug("listed products", zap.Int("count", len(result)), zap.Int("total", total))
	return result, total, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get product", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM products WHERE state = 'active' ORDER BY category`)
	if err != nil {
		r.logger.Error("list categories", zap.Error(err))
		return nil, err
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (title, description, price_cents, image, category, stock, state, sku, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
RETURNING ` + productColumns
	created, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Title, p.Description, p.PriceCents, p.Image, p.Category, p.Stock, string(p.State), p.SKU, tagsOrEmpty(p.Tags)))
	if err != nil {
		return nil, r.writeError("create", p, err)
	}
	r.logger.Info("product created", zap.String("id", created.ID), zap.String("sku", created.SKU))
	return created, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
UPDATE products SET
    title = $2, description = $3, price_cents = $4, image = $5, category = $6,
    stock = $7, state = $8, sku = NULLIF($9, ''), tags = $10, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns
	updated, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ID, p.Title, p.Description, p.PriceCents, p.Image, p.Category, p.Stock, string(p.State), p.SKU, tagsOrEmpty(p.Tags)))
	if err != nil {
		return nil, r.writeError("update", p, err)
	}
	return updated, nil
}

func (r *postgresRepo) SetState(ctx context.Context, id string, state domain.ProductState) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET state = $2, updated_at = now() WHERE id = $1`, id, string(state))
	if err != nil {
		r.logger.Error("set product state", zap.String("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("product state changed", zap.String("id", id), zap.String("state", string(state)))
	return nil
}

func (r *postgresRepo) SetImage(ctx context.Context, id, image string) (*domain.Product, error) {
	q := `UPDATE products SET image = $2, updated_at = now() WHERE id = $1 RETURNING ` + productColumns
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id, image))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("set product image", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) UpsertBySKU(ctx context.Context, p domain.Product) (*domain.Product, bool, error) {
	if p.SKU == "" {
		return nil, false, fmt.Errorf("upsert requires a sku")
	}
	q := `
INSERT INTO products (title, description, price_cents, image, category, stock, state, sku, tags)
VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, $8)
ON CONFLICT (sku) WHERE state = 'active' AND sku IS NOT NULL DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    image = EXCLUDED.image,
    category = EXCLUDED.category,
    stock = EXCLUDED.stock,
    tags = EXCLUDED.tags,
    updated_at = now()
RETURNING ` + productColumns + `, (xmax = 0)`

	var created bool
	row := r.pool.QueryRow(ctx, q, p.Title, p.Description, p.PriceCents, p.Image, p.Category, p.Stock, p.SKU, tagsOrEmpty(p.Tags))
	var res domain.Product
	var state string
	err := row.Scan(&res.ID, &res.Title, &res.Description, &res.PriceCents, &res.Image, &res.Category,
		&res.Stock, &state, &res.SKU, &res.Tags, &res.CreatedAt, &res.UpdatedAt, &created)
	if err != nil {
		r.logger.Error("upsert product", zap.String("sku", p.SKU), zap.Error(err))
		return nil, false, err
	}
	res.State = domain.ProductState(state)
	r.logger.Debug("product upserted", zap.String("sku", res.SKU), zap.Bool("created", created))
	return &res, created, nil
}

func (r *postgresRepo) SKUTaken(ctx context.Context, sku, excludeID string) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM products
    WHERE sku = $1 AND state = 'active' AND ($2 = '' OR id::text <> $2)
)`
	var taken bool
	if err := r.pool.QueryRow(ctx, q, sku, excludeID).Scan(&taken); err != nil {
		r.logger.Error("check sku", zap.String("sku", sku), zap.Error(err))
		return false, err
	}
	return taken, nil
}

func (r *postgresRepo) writeError(op string, p domain.Product, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if sqlutil.IsUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	r.logger.Error(op+" product", zap.String("id", p.ID), zap.String("sku", p.SKU), zap.Error(err))
	return err
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var state string
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.PriceCents, &p.Image, &p.Category,
		&p.Stock, &state, &p.SKU, &p.Tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.State = domain.ProductState(state)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func sortColumn(s SortField) string {
	switch s {
	case SortTitle, SortPrice:
		return string(s)
	default:
		return string(SortCreatedAt)
	}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
