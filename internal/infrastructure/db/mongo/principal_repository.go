package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
)

const (
	principalsCollection = "principals"

	emailIndex    = "uniq_email"
	usernameIndex = "uniq_username"
)

// PrincipalRepository is the Mongo-backed Credential Store.
type PrincipalRepository struct {
	coll *mongo.Collection
}

var _ ports.PrincipalRepository = (*PrincipalRepository)(nil)

func NewPrincipalRepository(db *mongo.Database) *PrincipalRepository {
	return &PrincipalRepository{coll: db.Collection(principalsCollection)}
}

type mongoPrincipal struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Profile      domain.Profile     `bson:"profile"`
	IsActive     bool               `bson:"is_active"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func fromDomain(p *domain.Principal) mongoPrincipal {
	return mongoPrincipal{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         string(p.Role),
		Profile:      p.Profile,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func (mp mongoPrincipal) toDomain() *domain.Principal {
	return &domain.Principal{
		ID:           mp.ID.Hex(),
		Username:     mp.Username,
		Email:        mp.Email,
		PasswordHash: mp.PasswordHash,
		Role:         domain.Role(mp.Role),
		Profile:      mp.Profile,
		IsActive:     mp.IsActive,
		CreatedAt:    mp.CreatedAt.UTC(),
		UpdatedAt:    mp.UpdatedAt.UTC(),
	}
}

// Create inserts the principal in one write. The unique indexes decide races
// between concurrent signups.
func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fromDomain(p)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateKeyError(err)
		}
		return nil, fmt.Errorf("insert principal: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert principal: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

// duplicateKeyError tells which unique index rejected the insert. Only the
// part of each message before "dup key:" is inspected, since the rejected
// value itself may contain an index name.
func duplicateKeyError(err error) error {
	var messages []string
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			messages = append(messages, e.Message)
		}
	} else {
		messages = append(messages, err.Error())
	}

	for _, msg := range messages {
		head, _, _ := strings.Cut(msg, " dup key:")
		if strings.Contains(head, "index: "+usernameIndex) {
			return domain.ErrUsernameTaken
		}
	}
	return domain.ErrEmailTaken
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*domain.Principal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *PrincipalRepository) findOne(ctx context.Context, filter bson.M) (*domain.Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoPrincipal
	if err := r.coll.FindOne(ctx, filter).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return mp.toDomain(), nil
}

// List returns a page of principals ordered by creation time, plus the total count.
func (r *PrincipalRepository) List(ctx context.Context, offset, limit int) ([]*domain.Principal, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count principals: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list principals: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoPrincipal
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode principals: %w", err)
	}

	out := make([]*domain.Principal, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

// EnsureIndexes creates the unique indexes the Credential Store relies on.
func (r *PrincipalRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName(usernameIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
