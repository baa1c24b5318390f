package mongo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"assettracker-backend/internal/domain"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt,
	}
}

type userRepository struct {
	coll *mongo.Collection
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	oid, err := resolveID(&u.ID)
	if err != nil {
		return err
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err = r.coll.InsertOne(ctx, userDoc{
		ID:        oid,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	var doc userDoc
	if err := findOne(ctx, r.coll, bson.M{"_id": oid}, &doc, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc userDoc
	filter := bson.M{"email": strings.ToLower(email)}
	if err := findOne(ctx, r.coll, filter, &doc, domain.ErrUserNotFound); err != nil {
		return nil, err
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	users := make([]domain.User, 0, len(oids))
	if len(oids) == 0 {
		return users, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}
