package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

type requestRow struct {
	ID        string    `db:"id"`
	AssetID   string    `db:"asset_id"`
	UserID    string    `db:"user_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r requestRow) toDomain() domain.AssetRequest {
	return domain.AssetRequest{
		ID:        strings.TrimSpace(r.ID),
		AssetID:   strings.TrimSpace(r.AssetID),
		UserID:    strings.TrimSpace(r.UserID),
		Status:    domain.RequestStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

var requestColumns = []any{"id", "asset_id", "user_id", "status", "created_at", "updated_at"}

type assetRequestRepository struct {
	db   sqlx.ExtContext
	lock bool
}

func NewAssetRequestRepository(db sqlx.ExtContext) repository.AssetRequestRepository {
	return &assetRequestRepository{db: db}
}

func (r *assetRequestRepository) Create(ctx context.Context, req *domain.AssetRequest) error {
	query := `INSERT INTO asset_requests (id, asset_id, user_id, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if req.ID == "" {
		req.ID = domain.NewID()
	}
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now

	logger.DatabaseCall("asset_requests.create", query, "request_id", req.ID, "asset_id", req.AssetID)
	_, err := r.db.ExecContext(ctx, query, req.ID, req.AssetID, req.UserID, string(req.Status), req.CreatedAt, req.UpdatedAt)
	if isUniqueViolation(err, pendingRequestIndex) {
		return domain.ErrDuplicateRequest
	}
	logger.DatabaseResult("asset_requests.create", 1, err)
	return err
}

func (r *assetRequestRepository) get(ctx context.Context, lock bool, where ...exp.Expression) (*domain.AssetRequest, error) {
	ds := dialect.From("asset_requests").Select(requestColumns...).
		Where(where...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Limit(1).
		Prepared(true)
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	var row requestRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, args...); err != nil {
		return nil, notFound(err, domain.ErrRequestNotFound)
	}
	req := row.toDomain()
	return &req, nil
}

func (r *assetRequestRepository) GetByID(ctx context.Context, id string) (*domain.AssetRequest, error) {
	return r.get(ctx, r.lock, goqu.C("id").Eq(id))
}

func (r *assetRequestRepository) FindPending(ctx context.Context, assetID, userID string) (*domain.AssetRequest, error) {
	return r.get(ctx, false,
		goqu.C("asset_id").Eq(assetID),
		goqu.C("user_id").Eq(userID),
		goqu.C("status").Eq(string(domain.RequestStatusPending)),
	)
}

func (r *assetRequestRepository) List(ctx context.Context, f repository.RequestFilter) ([]domain.AssetRequest, error) {
	ds := dialect.From("asset_requests").Select(requestColumns...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Prepared(true)
	if f.AssetID != "" {
		ds = ds.Where(goqu.C("asset_id").Eq(f.AssetID))
	}
	if f.UserID != "" {
		ds = ds.Where(goqu.C("user_id").Eq(f.UserID))
	}
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.Status)))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []requestRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	reqs := make([]domain.AssetRequest, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, row.toDomain())
	}
	return reqs, nil
}

func (r *assetRequestRepository) UpdateStatus(ctx context.Context, req *domain.AssetRequest, expected domain.RequestStatus) error {
	query := `UPDATE asset_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	req.UpdatedAt = time.Now().UTC()

	logger.DatabaseCall("asset_requests.update_status", query, "request_id", req.ID, "expected", expected, "next", req.Status)
	res, err := r.db.ExecContext(ctx, query, string(req.Status), req.UpdatedAt, req.ID, string(expected))
	if err != nil {
		logger.DatabaseResult("asset_requests.update_status", 0, err)
		return err
	}
	return conditional(ctx, r.db, res, "asset_requests", req.ID, domain.ErrRequestNotFound)
}
