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

type assetDoc struct {
	ID         primitive.ObjectID  `bson:"_id"`
	Name       string              `bson:"name"`
	Type       string              `bson:"type"`
	Status     string              `bson:"status"`
	AssignedTo *primitive.ObjectID `bson:"assignedTo"`
	CreatedAt  time.Time           `bson:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt"`
}

func (d assetDoc) toDomain() domain.Asset {
	a := domain.Asset{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Type:      d.Type,
		Status:    domain.AssetStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.AssignedTo != nil {
		id := d.AssignedTo.Hex()
		a.AssignedTo = &id
	}
	return a
}

func assigneeID(id *string) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	oid, ok := objectID(*id)
	if !ok {
		return nil
	}
	return &oid
}

type assetRepository struct {
	coll *mongo.Collection
}

func (r *assetRepository) Create(ctx context.Context, a *domain.Asset) error {
	oid, err := resolveID(&a.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	a.CreatedAt, a.UpdatedAt = now, now

	_, err = r.coll.InsertOne(ctx, assetDoc{
		ID:         oid,
		Name:       a.Name,
		Type:       a.Type,
		Status:     string(a.Status),
		AssignedTo: assigneeID(a.AssignedTo),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return err
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	var doc assetDoc
	if err := findOne(ctx, r.coll, bson.M{"_id": oid}, &doc, domain.ErrAssetNotFound); err != nil {
		return nil, err
	}
	a := doc.toDomain()
	return &a, nil
}

func (r *assetRepository) List(ctx context.Context, f repository.AssetFilter) ([]domain.Asset, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.AssignedTo != "" {
		oid, ok := objectID(f.AssignedTo)
		if !ok {
			return []domain.Asset{}, nil
		}
		filter["assignedTo"] = oid
	}
	if f.IDs != nil {
		oids := make([]primitive.ObjectID, 0, len(f.IDs))
		for _, id := range f.IDs {
			if oid, ok := objectID(id); ok {
				oids = append(oids, oid)
			}
		}
		if len(oids) == 0 {
			return []domain.Asset{}, nil
		}
		filter["_id"] = bson.M{"$in": oids}
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []assetDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	assets := make([]domain.Asset, 0, len(docs))
	for _, d := range docs {
		assets = append(assets, d.toDomain())
	}
	return assets, nil
}

func (r *assetRepository) UpdateStatus(ctx context.Context, a *domain.Asset, expected domain.AssetStatus) error {
	oid, ok := objectID(a.ID)
	if !ok {
		return domain.ErrAssetNotFound
	}
	a.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(expected)},
		bson.M{"$set": bson.M{
			"status":     string(a.Status),
			"assignedTo": assigneeID(a.AssignedTo),
			"updatedAt":  a.UpdatedAt,
		}},
	)
	if err != nil {
		return err
	}
	return conditional(ctx, r.coll, res, oid, domain.ErrAssetNotFound)
}
