package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian-ops/internal/shared"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// mapPGError translates constraint violations into the shared taxonomy so
// deleting a referenced row surfaces as a Conflict instead of a raw
// storage error.
func mapPGError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound(entity)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return shared.Conflictf("%s is still referenced", entity)
		case pgUniqueViolation:
			return shared.Conflictf("%s already exists", entity)
		}
	}
	return err
}

// Repository persists the masterdata entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateClient(ctx context.Context, name, email string) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, email, created_at) VALUES ($1, NULLIF($2, ''), NOW())
		RETURNING id, name, COALESCE(email, ''), created_at`, name, email).
		Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, mapPGError(err, "client")
	}
	return &c, nil
}

func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(email, ''), created_at FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *Repository) DeleteClient(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return mapPGError(err, "client")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("client")
	}
	return nil
}

func (r *Repository) CreateVendor(ctx context.Context, name, email string) (*Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx, `
		INSERT INTO vendors (name, email, created_at) VALUES ($1, NULLIF($2, ''), NOW())
		RETURNING id, name, COALESCE(email, ''), created_at`, name, email).
		Scan(&v.ID, &v.Name, &v.Email, &v.CreatedAt)
	if err != nil {
		return nil, mapPGError(err, "vendor")
	}
	return &v, nil
}

func (r *Repository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(email, ''), created_at FROM vendors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.CreatedAt); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (r *Repository) DeleteVendor(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return mapPGError(err, "vendor")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("vendor")
	}
	return nil
}

func (r *Repository) CreateProject(ctx context.Context, clientID int64, name string, engagement Engagement) (*Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `
		INSERT INTO projects (client_id, name, engagement, created_at) VALUES ($1, $2, $3, NOW())
		RETURNING id, client_id, name, engagement, created_at`, clientID, name, engagement).
		Scan(&p.ID, &p.ClientID, &p.Name, &p.Engagement, &p.CreatedAt)
	if err != nil {
		return nil, mapPGError(err, "project")
	}
	return &p, nil
}

func (r *Repository) GetProject(ctx context.Context, id int64) (*Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `SELECT id, client_id, name, engagement, created_at FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.ClientID, &p.Name, &p.Engagement, &p.CreatedAt)
	if err != nil {
		return nil, mapPGError(err, "project")
	}
	return &p, nil
}

func (r *Repository) ListProjects(ctx context.Context, clientID int64) ([]Project, error) {
	query := `SELECT id, client_id, name, engagement, created_at FROM projects ORDER BY name`
	args := []any{}
	if clientID > 0 {
		query = `SELECT id, client_id, name, engagement, created_at FROM projects WHERE client_id = $1 ORDER BY name`
		args = append(args, clientID)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &p.Engagement, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapPGError(err, "project")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("project")
	}
	return nil
}

func (r *Repository) CreateCatalogItem(ctx context.Context, name, kind string) (*CatalogItem, error) {
	var item CatalogItem
	err := r.pool.QueryRow(ctx, `
		INSERT INTO catalog_items (name, kind, created_at) VALUES ($1, $2, NOW())
		RETURNING id, name, kind, created_at`, name, kind).
		Scan(&item.ID, &item.Name, &item.Kind, &item.CreatedAt)
	if err != nil {
		return nil, mapPGError(err, "catalog item")
	}
	return &item, nil
}

func (r *Repository) ListCatalogItems(ctx context.Context) ([]CatalogItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, kind, created_at FROM catalog_items ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		var item CatalogItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Kind, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) DeleteCatalogItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM catalog_items WHERE id = $1`, id)
	if err != nil {
		return mapPGError(err, "catalog item")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("catalog item")
	}
	return nil
}
