package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"studentdesk/internal/models"
	"studentdesk/internal/repository"
)

// userDocument keeps the password hash as a string in "password" so records
// written by the legacy deployment (bcrypt hashes) remain readable.
type userDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Username   string             `bson:"username"`
	Password   string             `bson:"password,omitempty"`
	ExternalID string             `bson:"externalId,omitempty"`
	FacebookID string             `bson:"facebookId,omitempty"`
	Email      string             `bson:"email,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d userDocument) model() models.User {
	user := models.User{
		ID:         d.ID.Hex(),
		Username:   d.Username,
		ExternalID: d.linkedID(),
		Email:      d.Email,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.Password != "" {
		user.PasswordHash = []byte(d.Password)
	}
	return user
}

const facebookPrefix = "facebook:"

// linkedID prefers externalId and falls back to the facebookId older records carry.
func (d userDocument) linkedID() string {
	if d.ExternalID == "" && d.FacebookID != "" {
		return facebookPrefix + d.FacebookID
	}
	return d.ExternalID
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:         primitive.NewObjectID(),
		Username:   user.Username,
		Password:   string(user.PasswordHash),
		ExternalID: user.ExternalID,
		Email:      user.Email,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return models.User{}, duplicateUserError(err)
	}
	return doc.model(), nil
}

// duplicateUserError maps a duplicate key error to the sentinel for the index
// that rejected it. Other errors are returned unchanged.
func duplicateUserError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), "externalId") {
		return repository.ErrDuplicateExternalID
	}
	return repository.ErrDuplicateUsername
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	doc, err := r.findOne(ctx, bson.M{"username": username})
	if err != nil {
		return models.User{}, err
	}
	return doc.model(), nil
}

// FindByExternalID also finds Facebook users stored with only facebookId and
// backfills externalId on them.
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (models.User, error) {
	if externalID == "" {
		return models.User{}, repository.ErrUserNotFound
	}

	doc, err := r.findOne(ctx, externalIDFilter(externalID))
	if err != nil {
		return models.User{}, err
	}

	if doc.ExternalID == "" {
		if _, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": doc.ID},
			bson.M{"$set": bson.M{"externalId": externalID}},
		); err != nil {
			return models.User{}, fmt.Errorf("backfill external id: %w", duplicateUserError(err))
		}
		doc.ExternalID = externalID
	}
	return doc.model(), nil
}

func externalIDFilter(externalID string) bson.M {
	if raw, ok := strings.CutPrefix(externalID, facebookPrefix); ok && raw != "" {
		return bson.M{"$or": bson.A{
			bson.M{"externalId": externalID},
			bson.M{"facebookId": raw},
		}}
	}
	return bson.M{"externalId": externalID}
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (userDocument, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return userDocument{}, repository.ErrUserNotFound
		}
		return userDocument{}, err
	}
	return doc, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, username string, passwordHash []byte) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$set": bson.M{
			"password":  string(passwordHash),
			"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
