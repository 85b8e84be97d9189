package repository

import (
	"context"
	"fmt"
	"strings"

	"partscatalog/sitemap/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository is the read-only view of the parts catalog used by the
// sitemap generator. Every list it returns is ordered by name, bytewise, so
// the order matches Go string comparison.
type CatalogRepository interface {
	FetchBatch(ctx context.Context, filter domain.Filter, offset, limit int) (*domain.CatalogBatch, error)
	FetchDistinctPairs(ctx context.Context, filter domain.Filter) ([]domain.CategoryPair, error)
	CountByCategory(ctx context.Context, filter domain.Filter) ([]domain.CategoryCount, error)
	Manufacturers(ctx context.Context) ([]string, error)
	FindCategories(ctx context.Context, key string, limit int) ([]string, error)
	FindManufacturers(ctx context.Context, key string, limit int) ([]string, error)
}

type catalogRepository struct {
	db    *pgxpool.Pool
	table string
}

func NewCatalogRepository(db *pgxpool.Pool, table string) CatalogRepository {
	if table == "" {
		table = "parts"
	}
	return &catalogRepository{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

func (r *catalogRepository) FetchBatch(ctx context.Context, filter domain.Filter, offset, limit int) (*domain.CatalogBatch, error) {
	where, args := whereClause(filter)

	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf(`SELECT count(*) FROM %s %s`, r.table, where), args...)
	batch.Queue(fmt.Sprintf(`
	SELECT id, name, category, subcategory, manufacturer
	FROM %s %s
	ORDER BY name COLLATE "C" ASC, id ASC
	OFFSET $%d LIMIT $%d`, r.table, where, len(args)+1, len(args)+2),
		append(args, offset, limit)...)

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	var total int
	if err := results.QueryRow().Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count catalog rows: %w", err)
	}

	rows, err := results.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog batch at offset %d: %w", offset, err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.CatalogItem])
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog batch at offset %d: %w", offset, err)
	}

	return &domain.CatalogBatch{
		Offset: offset,
		Items:  items,
		Total:  total,
	}, nil
}

func (r *catalogRepository) FetchDistinctPairs(ctx context.Context, filter domain.Filter) ([]domain.CategoryPair, error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf(`
	SELECT DISTINCT category COLLATE "C", subcategory COLLATE "C"
	FROM %s %s
	ORDER BY 1 ASC, 2 ASC`, r.table, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category pairs: %w", err)
	}

	pairs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.CategoryPair])
	if err != nil {
		return nil, fmt.Errorf("failed to read category pairs: %w", err)
	}
	return pairs, nil
}

func (r *catalogRepository) CountByCategory(ctx context.Context, filter domain.Filter) ([]domain.CategoryCount, error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf(`
	SELECT category COLLATE "C", count(*)
	FROM %s %s
	GROUP BY 1
	ORDER BY 1 ASC`, r.table, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	counts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.CategoryCount])
	if err != nil {
		return nil, fmt.Errorf("failed to read category counts: %w", err)
	}
	return counts, nil
}

func (r *catalogRepository) Manufacturers(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
	SELECT DISTINCT manufacturer COLLATE "C"
	FROM %s
	WHERE manufacturer <> ''
	ORDER BY 1 ASC`, r.table)

	return r.collectNames(ctx, query)
}

func (r *catalogRepository) FindCategories(ctx context.Context, key string, limit int) ([]string, error) {
	return r.findDistinct(ctx, "category", key, limit)
}

func (r *catalogRepository) FindManufacturers(ctx context.Context, key string, limit int) ([]string, error) {
	return r.findDistinct(ctx, "manufacturer", key, limit)
}

// findDistinct returns at most limit distinct values of one column whose
// lower-cased alphanumerics equal key.
func (r *catalogRepository) findDistinct(ctx context.Context, column, key string, limit int) ([]string, error) {
	col := pgx.Identifier{column}.Sanitize()
	query := fmt.Sprintf(`
	SELECT DISTINCT %s COLLATE "C"
	FROM %s
	WHERE regexp_replace(lower(%s), '[^a-z0-9]+', '', 'g') = $1
	ORDER BY 1 ASC
	LIMIT $2`, col, r.table, col)

	return r.collectNames(ctx, query, key, limit)
}

func (r *catalogRepository) collectNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read names: %w", err)
	}
	return names, nil
}

func whereClause(filter domain.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Manufacturer != "" {
		args = append(args, filter.Manufacturer)
		conds = append(conds, fmt.Sprintf("manufacturer = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
