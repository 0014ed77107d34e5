package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoLedger(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("add upserts without overwriting", func(mt *mtest.T) {
		l := &Mongo{client: mt.Client, collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, l.Add(context.Background(), "openeuler", 12))

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		update := evt.Command.Lookup("updates", "0")
		assert.True(mt, update.Document().Lookup("upsert").Boolean())
		inserted := update.Document().Lookup("u", "$setOnInsert").Document()
		assert.Equal(mt, "openeuler", inserted.Lookup("subject").StringValue())
		assert.EqualValues(mt, 12, inserted.Lookup("questionId").AsInt64())
	})

	mt.Run("ids sorted by creation", func(mt *mtest.T) {
		l := &Mongo{client: mt.Client, collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "subject", Value: "openeuler"}, {Key: "questionId", Value: 9}},
			bson.D{{Key: "subject", Value: "openeuler"}, {Key: "questionId", Value: 2}},
		))

		ids, err := l.IDs(context.Background(), "openeuler")
		require.NoError(mt, err)
		assert.Equal(mt, []int{9, 2}, ids)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.EqualValues(mt, 1, evt.Command.Lookup("sort", "createdAt").AsInt64())
		assert.Equal(mt, "openeuler", evt.Command.Lookup("filter", "subject").StringValue())
	})

	mt.Run("write failures are wrapped", func(mt *mtest.T) {
		l := &Mongo{client: mt.Client, collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "rejected",
		}))

		err := l.Remove(context.Background(), "openeuler", 12)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "remove from wrong book")
	})

	mt.Run("empty subject rejected before any command", func(mt *mtest.T) {
		l := &Mongo{client: mt.Client, collection: mt.Coll}
		assert.Error(mt, l.Add(context.Background(), "", 1))
		assert.Nil(mt, mt.GetStartedEvent())
	})
}
