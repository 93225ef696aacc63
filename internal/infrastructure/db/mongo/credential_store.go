package mongo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/edudash/credential-service/internal/core/domain"
)

const (
	fieldEmail          = "email"
	fieldPassword       = "password"
	fieldHashedPassword = "hashed_password"
)

// collectionSchema maps a credential source to its collection and key field.
type collectionSchema struct {
	collection string
	idField    string
}

var schemas = map[domain.Source]collectionSchema{
	domain.SourceStudents: {collection: "students", idField: "student_id"},
	domain.SourceTeachers: {collection: "teachers", idField: "email"},
}

// credentialDoc is the persisted row shape shared by students and teachers.
type credentialDoc struct {
	StudentID      string   `bson:"student_id,omitempty"`
	Email          string   `bson:"email"`
	Name           string   `bson:"name"`
	Password       *string  `bson:"password,omitempty"`
	HashedPassword *string  `bson:"hashed_password,omitempty"`
	ClassID        string   `bson:"class_id,omitempty"`
	Classes        []string `bson:"classes,omitempty"`
}

func (d credentialDoc) toDomain(source domain.Source) *domain.Credential {
	c := &domain.Credential{
		Source:            source,
		Identifier:        d.Email,
		Email:             d.Email,
		DisplayName:       d.Name,
		PlaintextPassword: d.Password,
		HashedPassword:    d.HashedPassword,
		ClassID:           d.ClassID,
		Classes:           d.Classes,
	}
	if source == domain.SourceStudents {
		c.Identifier = d.StudentID
	}
	return c
}

// unhashed matches rows whose hash is missing, null, or empty.
var unhashed = bson.M{fieldHashedPassword: bson.M{"$in": bson.A{nil, ""}}}

// CredentialStore implements ports.CredentialStore for one tenant database.
type CredentialStore struct {
	db      *mongo.Database
	timeout time.Duration
}

// NewCredentialStore binds a store to a tenant database. Each single-record
// call is bounded by timeout (defaultTimeout when zero).
func NewCredentialStore(db *mongo.Database, timeout time.Duration) *CredentialStore {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CredentialStore{db: db, timeout: timeout}
}

func (s *CredentialStore) collection(source domain.Source) (*mongo.Collection, collectionSchema, error) {
	schema, ok := schemas[source]
	if !ok {
		return nil, collectionSchema{}, fmt.Errorf("unknown credential source %q", source)
	}
	return s.db.Collection(schema.collection), schema, nil
}

// FindByEmail returns the row in source with the given email.
func (s *CredentialStore) FindByEmail(ctx context.Context, source domain.Source, email string) (*domain.Credential, error) {
	coll, _, err := s.collection(source)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := coll.FindOne(ctx, bson.M{fieldEmail: email})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: find %s by email: %w", domain.ErrStoreUnavailable, source, err)
	}

	var doc credentialDoc
	if err := res.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedRecord, source, err)
	}
	return doc.toDomain(source), nil
}

// ListUnhashed streams rows without a stored hash. The cursor is opened when
// iteration starts and closed when it ends or the caller stops early.
func (s *CredentialStore) ListUnhashed(ctx context.Context, source domain.Source) iter.Seq2[*domain.Credential, error] {
	return func(yield func(*domain.Credential, error) bool) {
		coll, _, err := s.collection(source)
		if err != nil {
			yield(nil, err)
			return
		}

		cur, err := coll.Find(ctx, unhashed)
		if err != nil {
			yield(nil, fmt.Errorf("%w: scan %s: %w", domain.ErrStoreUnavailable, source, err))
			return
		}
		defer cur.Close(context.WithoutCancel(ctx))

		for cur.Next(ctx) {
			var doc credentialDoc
			if err := cur.Decode(&doc); err != nil {
				if !yield(nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedRecord, source, err)) {
					return
				}
				continue
			}
			if !yield(doc.toDomain(source), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, fmt.Errorf("%w: scan %s: %w", domain.ErrStoreUnavailable, source, err))
		}
	}
}

// SetHashedPassword writes hash only while the row still has no hash, so a
// concurrent run's hash is never overwritten.
func (s *CredentialStore) SetHashedPassword(ctx context.Context, source domain.Source, identifier, hash string, purgePlaintext bool) (domain.UpdateResult, error) {
	coll, schema, err := s.collection(source)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{schema.idField: identifier}
	for k, v := range unhashed {
		filter[k] = v
	}
	update := bson.M{"$set": bson.M{fieldHashedPassword: hash}}
	if purgePlaintext {
		update["$unset"] = bson.M{fieldPassword: ""}
	}

	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("%w: update %s %s: %w", domain.ErrStoreUnavailable, source, identifier, err)
	}
	if res.MatchedCount > 0 {
		return domain.UpdateApplied, nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{schema.idField: identifier})
	if err != nil {
		return 0, fmt.Errorf("%w: recheck %s %s: %w", domain.ErrStoreUnavailable, source, identifier, err)
	}
	if n == 0 {
		return 0, domain.ErrCredentialNotFound
	}
	return domain.UpdateAlreadyHashed, nil
}

// EnsureIndexes creates the lookup indexes on both credential collections.
func (s *CredentialStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, source := range domain.Sources {
		coll, schema, _ := s.collection(source)
		indexes := []mongo.IndexModel{
			{Keys: bson.D{{Key: fieldEmail, Value: 1}}},
			{Keys: bson.D{{Key: fieldHashedPassword, Value: 1}}},
		}
		if schema.idField != fieldEmail {
			indexes = append(indexes, mongo.IndexModel{Keys: bson.D{{Key: schema.idField, Value: 1}}})
		}
		if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", schema.collection, err)
		}
	}
	return nil
}
