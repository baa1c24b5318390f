package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/repository"
)

type requestDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Asset     primitive.ObjectID `bson:"asset"`
	User      primitive.ObjectID `bson:"user"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d requestDoc) toDomain() domain.AssetRequest {
	return domain.AssetRequest{
		ID:        d.ID.Hex(),
		AssetID:   d.Asset.Hex(),
		UserID:    d.User.Hex(),
		Status:    domain.RequestStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type assetRequestRepository struct {
	coll *mongo.Collection
}

func (r *assetRequestRepository) Create(ctx context.Context, req *domain.AssetRequest) error {
	assetOID, ok := objectID(req.AssetID)
	if !ok {
		return domain.ErrAssetNotFound
	}
	userOID, ok := objectID(req.UserID)
	if !ok {
		return domain.ErrUserNotFound
	}
	oid, err := resolveID(&req.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	req.CreatedAt, req.UpdatedAt = now, now

	_, err = r.coll.InsertOne(ctx, requestDoc{
		ID:        oid,
		Asset:     assetOID,
		User:      userOID,
		Status:    string(req.Status),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateRequest
	}
	return err
}

func (r *assetRequestRepository) GetByID(ctx context.Context, id string) (*domain.AssetRequest, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	var doc requestDoc
	if err := findOne(ctx, r.coll, bson.M{"_id": oid}, &doc, domain.ErrRequestNotFound); err != nil {
		return nil, err
	}
	req := doc.toDomain()
	return &req, nil
}

func (r *assetRequestRepository) FindPending(ctx context.Context, assetID, userID string) (*domain.AssetRequest, error) {
	assetOID, ok1 := objectID(assetID)
	userOID, ok2 := objectID(userID)
	if !ok1 || !ok2 {
		return nil, domain.ErrRequestNotFound
	}
	var doc requestDoc
	filter := bson.M{"asset": assetOID, "user": userOID, "status": string(domain.RequestStatusPending)}
	if err := findOne(ctx, r.coll, filter, &doc, domain.ErrRequestNotFound); err != nil {
		return nil, err
	}
	req := doc.toDomain()
	return &req, nil
}

func (r *assetRequestRepository) List(ctx context.Context, f repository.RequestFilter) ([]domain.AssetRequest, error) {
	filter := bson.M{}
	for field, raw := range map[string]string{"asset": f.AssetID, "user": f.UserID} {
		if raw == "" {
			continue
		}
		oid, ok := objectID(raw)
		if !ok {
			return []domain.AssetRequest{}, nil
		}
		filter[field] = oid
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []requestDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	reqs := make([]domain.AssetRequest, 0, len(docs))
	for _, d := range docs {
		reqs = append(reqs, d.toDomain())
	}
	return reqs, nil
}

func (r *assetRequestRepository) UpdateStatus(ctx context.Context, req *domain.AssetRequest, expected domain.RequestStatus) error {
	oid, ok := objectID(req.ID)
	if !ok {
		return domain.ErrRequestNotFound
	}
	req.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(expected)},
		bson.M{"$set": bson.M{"status": string(req.Status), "updatedAt": req.UpdatedAt}},
	)
	if err != nil {
		return err
	}
	return conditional(ctx, r.coll, res, oid, domain.ErrRequestNotFound)
}
