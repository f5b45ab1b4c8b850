package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterBuilder_AppendIfAbsent(t *testing.T) {
	req := require.New(t)
	msgID := primitive.NewObjectID()
	recipient := primitive.NewObjectID()

	filter := NewFilter().
		Eq("_id", msgID).
		Eq("deliveredTo.recipientId", recipient).
		Ne("seenBy.recipientId", recipient).
		Build()

	req.Equal(bson.M{
		"_id":                     msgID,
		"deliveredTo.recipientId": recipient,
		"seenBy.recipientId":      bson.M{"$ne": recipient},
	}, filter)
}

func TestFilterBuilder_ArrayExactly(t *testing.T) {
	req := require.New(t)
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	filter := NewFilter().
		Eq("isGroup", false).
		ArrayExactly("participants", []interface{}{a, b}).
		Build()

	req.Equal(false, filter["isGroup"])
	req.Equal(bson.M{"$all": []interface{}{a, b}, "$size": 2}, filter["participants"])
}

func TestFilterBuilder_In(t *testing.T) {
	req := require.New(t)
	ids := []primitive.ObjectID{primitive.NewObjectID()}

	filter := NewFilter().In("_id", ids).Build()

	req.Equal(bson.M{"_id": bson.M{"$in": ids}}, filter)
}
