//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"

	"partscatalog/sitemap/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE parts (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	category     TEXT NOT NULL,
	subcategory  TEXT NOT NULL,
	manufacturer TEXT NOT NULL
)`

// setupPostgres starts a Postgres container and returns a pool with the parts table seeded.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "catalog",
			"POSTGRES_PASSWORD": "catalog",
			"POSTGRES_DB":       "catalog",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Postgres container")
	t.Cleanup(func() { pgContainer.Terminate(context.Background()) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := pgxpool.New(ctx, fmt.Sprintf("host=%s port=%s user=catalog password=catalog dbname=catalog sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, schema)
	require.NoError(t, err)

	rows := []domain.CatalogItem{
		{ID: "1", Name: "Brake Pad A", Category: "Brakes", Subcategory: "Pads", Manufacturer: "Bosch"},
		{ID: "2", Name: "Brake Disc B", Category: "Brakes", Subcategory: "Discs", Manufacturer: "Bosch"},
		{ID: "3", Name: "Oil Filter C", Category: "Filters", Subcategory: "Oil", Manufacturer: "Mann"},
		{ID: "4", Name: "Air Filter D", Category: "Filters", Subcategory: "Air", Manufacturer: "Bosch"},
		{ID: "5", Name: "Wiper E", Category: "Wipers", Subcategory: "Blades", Manufacturer: "Valeo"},
	}
	for _, item := range rows {
		_, err := db.Exec(ctx,
			`INSERT INTO parts (id, name, category, subcategory, manufacturer) VALUES ($1, $2, $3, $4, $5)`,
			item.ID, item.Name, item.Category, item.Subcategory, item.Manufacturer)
		require.NoError(t, err)
	}

	return db
}

func TestCatalogRepository_Integration(t *testing.T) {
	db := setupPostgres(t)
	repo := NewCatalogRepository(db, "parts")
	ctx := context.Background()

	t.Run("FetchBatch pages by name", func(t *testing.T) {
		first, err := repo.FetchBatch(ctx, domain.Filter{}, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, first.Total)
		require.Len(t, first.Items, 2)
		assert.Equal(t, "Air Filter D", first.Items[0].Name)
		assert.Equal(t, "Brake Disc B", first.Items[1].Name)

		last, err := repo.FetchBatch(ctx, domain.Filter{}, 4, 2)
		require.NoError(t, err)
		require.Len(t, last.Items, 1)
		assert.Equal(t, "Wiper E", last.Items[0].Name)
	})

	t.Run("FetchBatch filters", func(t *testing.T) {
		batch, err := repo.FetchBatch(ctx, domain.Filter{Manufacturer: "Bosch", Category: "Brakes"}, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, batch.Total)
		assert.Len(t, batch.Items, 2)
	})

	t.Run("FetchDistinctPairs", func(t *testing.T) {
		pairs, err := repo.FetchDistinctPairs(ctx, domain.Filter{Manufacturer: "Bosch"})
		require.NoError(t, err)
		assert.Equal(t, []domain.CategoryPair{
			{Category: "Brakes", Subcategory: "Discs"},
			{Category: "Brakes", Subcategory: "Pads"},
			{Category: "Filters", Subcategory: "Air"},
		}, pairs)
	})

	t.Run("CountByCategory", func(t *testing.T) {
		counts, err := repo.CountByCategory(ctx, domain.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []domain.CategoryCount{
			{Category: "Brakes", Items: 2},
			{Category: "Filters", Items: 2},
			{Category: "Wipers", Items: 1},
		}, counts)
	})

	t.Run("Manufacturers", func(t *testing.T) {
		names, err := repo.Manufacturers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Bosch", "Mann", "Valeo"}, names)
	})

	t.Run("FindCategories matches the alphanumeric key", func(t *testing.T) {
		_, err := db.Exec(ctx,
			`INSERT INTO parts (id, name, category, subcategory, manufacturer) VALUES
			('6', 'Bolt F', 'Nuts/Bolts', 'Hex', 'O''Brien'),
			('7', 'Bolt G', 'nuts bolts', 'Hex', 'OBrien')`)
		require.NoError(t, err)

		names, err := repo.FindCategories(ctx, "nutsbolts", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Nuts/Bolts", "nuts bolts"}, names)

		names, err = repo.FindCategories(ctx, "filt", 10)
		require.NoError(t, err)
		assert.Empty(t, names, "a partial key is not a match")
	})

	t.Run("FindManufacturers honours limit", func(t *testing.T) {
		names, err := repo.FindManufacturers(ctx, "obrien", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"O'Brien"}, names)
	})
}
