package docstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"studentdesk/internal/repository"
)

func duplicateKey(index string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: studentdb.users index: " + index + " dup key",
	}}}
}

func TestDuplicateUserError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "username index", err: duplicateKey("username_1"), want: repository.ErrDuplicateUsername},
		{name: "external id index", err: duplicateKey("externalId_1"), want: repository.ErrDuplicateExternalID},
		{name: "other error", err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, duplicateUserError(tt.err), tt.want)
		})
	}
}

func TestExternalIDFilterMatchesFacebookIDField(t *testing.T) {
	assert.Equal(t, bson.M{"$or": bson.A{
		bson.M{"externalId": "facebook:1029"},
		bson.M{"facebookId": "1029"},
	}}, externalIDFilter("facebook:1029"))

	assert.Equal(t, bson.M{"externalId": "github:7"}, externalIDFilter("github:7"))
	assert.Equal(t, bson.M{"externalId": "facebook:"}, externalIDFilter("facebook:"))
}

func TestUserDocumentLinkedID(t *testing.T) {
	legacy := userDocument{ID: primitive.NewObjectID(), Username: "Amy Lau", FacebookID: "1029"}
	assert.Equal(t, "facebook:1029", legacy.model().ExternalID)

	linked := userDocument{ID: primitive.NewObjectID(), Username: "Amy Lau", ExternalID: "facebook:1029", FacebookID: "1029"}
	assert.Equal(t, "facebook:1029", linked.model().ExternalID)

	local := userDocument{ID: primitive.NewObjectID(), Username: "admin", Password: "$2a$10$abc"}
	assert.Empty(t, local.model().ExternalID)
	assert.Equal(t, []byte("$2a$10$abc"), local.model().PasswordHash)
}
