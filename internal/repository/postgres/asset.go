package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

type assetRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Type       string         `db:"type"`
	Status     string         `db:"status"`
	AssignedTo sql.NullString `db:"assigned_to"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r assetRow) toDomain() domain.Asset {
	a := domain.Asset{
		ID:        strings.TrimSpace(r.ID),
		Name:      r.Name,
		Type:      r.Type,
		Status:    domain.AssetStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.AssignedTo.Valid {
		id := strings.TrimSpace(r.AssignedTo.String)
		a.AssignedTo = &id
	}
	return a
}

func nullableID(id *string) sql.NullString {
	if id == nil || *id == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *id, Valid: true}
}

var assetColumns = []any{"id", "name", "type", "status", "assigned_to", "created_at", "updated_at"}

type assetRepository struct {
	db   sqlx.ExtContext
	lock bool
}

func NewAssetRepository(db sqlx.ExtContext) repository.AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, a *domain.Asset) error {
	query := `INSERT INTO assets (id, name, type, status, assigned_to, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if a.ID == "" {
		a.ID = domain.NewID()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	logger.DatabaseCall("assets.create", query, "asset_id", a.ID)
	_, err := r.db.ExecContext(ctx, query, a.ID, a.Name, a.Type, string(a.Status), nullableID(a.AssignedTo), a.CreatedAt, a.UpdatedAt)
	logger.DatabaseResult("assets.create", 1, err)
	return err
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	ds := dialect.From("assets").Select(assetColumns...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if r.lock {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	var row assetRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, args...); err != nil {
		return nil, notFound(err, domain.ErrAssetNotFound)
	}
	a := row.toDomain()
	return &a, nil
}

func (r *assetRepository) List(ctx context.Context, f repository.AssetFilter) ([]domain.Asset, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return []domain.Asset{}, nil
	}
	ds := dialect.From("assets").Select(assetColumns...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Prepared(true)
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.Status)))
	}
	if f.AssignedTo != "" {
		ds = ds.Where(goqu.C("assigned_to").Eq(f.AssignedTo))
	}
	if f.IDs != nil {
		ds = ds.Where(goqu.C("id").In(f.IDs))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []assetRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	assets := make([]domain.Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, row.toDomain())
	}
	return assets, nil
}

func (r *assetRepository) UpdateStatus(ctx context.Context, a *domain.Asset, expected domain.AssetStatus) error {
	query := `UPDATE assets SET status = $1, assigned_to = $2, updated_at = $3 WHERE id = $4 AND status = $5`
	a.UpdatedAt = time.Now().UTC()

	logger.DatabaseCall("assets.update_status", query, "asset_id", a.ID, "expected", expected, "next", a.Status)
	res, err := r.db.ExecContext(ctx, query, string(a.Status), nullableID(a.AssignedTo), a.UpdatedAt, a.ID, string(expected))
	if err != nil {
		logger.DatabaseResult("assets.update_status", 0, err)
		return err
	}
	return conditional(ctx, r.db, res, "assets", a.ID, domain.ErrAssetNotFound)
}
