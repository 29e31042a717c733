package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
)

const auditCollection = "auth_events"

// auditRetention bounds how long audit events are kept.
const auditRetention = 90 * 24 * time.Hour

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(auditCollection)}
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

// InsertEvent appends an event to the auth_events collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, eventDocument(event, time.Now().UTC()))
	return err
}

func eventDocument(event *domain.AuthEvent, storedAt time.Time) bson.M {
	doc := bson.M{
		"kind":      string(event.Kind),
		"email":     event.Email,
		"at":        event.At.UTC(),
		"stored_at": storedAt,
	}
	if event.PrincipalID != "" {
		doc["principal_id"] = event.PrincipalID
	}
	if event.Role != "" {
		doc["role"] = string(event.Role)
	}
	if event.Detail != "" {
		doc["detail"] = event.Detail
	}
	return doc
}

// EnsureIndexes adds lookup indexes and a TTL index on the audit collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "principal_id", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "stored_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(auditRetention.Seconds())),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
