package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           strings.TrimSpace(r.ID),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt,
	}
}

const userColumns = `id, name, email, password_hash, role, created_at`

type userRepository struct {
	db sqlx.ExtContext
}

func NewUserRepository(db sqlx.ExtContext) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, name, email, password_hash, role, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if u.ID == "" {
		u.ID = domain.NewID()
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now().UTC()

	logger.DatabaseCall("users.create", query, "user_id", u.ID)
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	if isUniqueViolation(err, usersEmailConstraint) {
		return domain.ErrEmailTaken
	}
	logger.DatabaseResult("users.create", 1, err)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	u := row.toDomain()
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE email = LOWER($1)`
	if err := sqlx.GetContext(ctx, r.db, &row, query, email); err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	u := row.toDomain()
	return &u, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	query, args, err := dialect.From("users").
		Select(goqu.L(userColumns)).
		Where(goqu.C("id").In(ids)).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}
