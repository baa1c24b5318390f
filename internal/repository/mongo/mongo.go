// Package mongo stores users, assets and requests in MongoDB. Multi-document writes run
// in session transactions, so the server must be a replica set member.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"assettracker-backend/internal/domain"
	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

const (
	usersCollection    = "users"
	assetsCollection   = "assets"
	requestsCollection = "assetrequests"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	inTx   bool
}

var _ repository.Store = (*Store)(nil)

// Open connects to uri, verifies the primary is reachable and ensures indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(20 * time.Second).
		SetServerSelectionTimeout(15 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info("Connected to MongoDB", "database", database)
	return s, nil
}

// EnsureIndexes creates the unique email index and the partial unique index that
// allows one PENDING request per asset and user.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = s.db.Collection(assetsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "assignedTo", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create assets index: %w", err)
	}

	_, err = s.db.Collection(requestsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "asset", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("pending_asset_user").
				SetPartialFilterExpression(bson.M{"status": string(domain.RequestStatusPending)}),
		},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create assetrequests indexes: %w", err)
	}
	return nil
}

// Database is exposed for test cleanup.
func (s *Store) Database() *mongo.Database { return s.db }

func (s *Store) Users() repository.UserRepository {
	return &userRepository{coll: s.db.Collection(usersCollection)}
}
func (s *Store) Assets() repository.AssetRepository {
	return &assetRepository{coll: s.db.Collection(assetsCollection)}
}
func (s *Store) Requests() repository.AssetRequestRepository {
	return &assetRequestRepository{coll: s.db.Collection(requestsCollection)}
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

func (s *Store) Close(ctx context.Context) error {
	if s.inTx {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// WithinTx runs fn inside a session transaction. The driver retries fn on transient
// transaction errors such as write conflicts.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	tx := &Store{client: s.client, db: s.db, inTx: true}
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, tx)
	})
	return err
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// resolveID parses id, generating a fresh one when empty.
func resolveID(id *string) (primitive.ObjectID, error) {
	if *id == "" {
		oid := primitive.NewObjectID()
		*id = oid.Hex()
		return oid, nil
	}
	oid, ok := objectID(*id)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed id %q", domain.ErrValidation, *id)
	}
	return oid, nil
}

func findOne(ctx context.Context, coll *mongo.Collection, filter any, out any, missing error) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return missing
	}
	return err
}

// conditional interprets an update guarded by the expected status.
func conditional(ctx context.Context, coll *mongo.Collection, res *mongo.UpdateResult, id primitive.ObjectID, missing error) error {
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return repository.ErrStaleState
}
