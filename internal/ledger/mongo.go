package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type wrongBookEntry struct {
	Subject    string    `bson:"subject"`
	QuestionID int       `bson:"questionId"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// Mongo stores one document per (subject, question) in the wrong_book collection.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo dials uri and returns a ledger on database db.
func ConnectMongo(ctx context.Context, uri, db string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return NewMongo(client, db), nil
}

func NewMongo(client *mongo.Client, db string) *Mongo {
	return &Mongo{
		client:     client,
		collection: client.Database(db).Collection("wrong_book"),
	}
}

// EnsureIndexes creates the unique (subject, questionId) index.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subject", Value: 1}, {Key: "questionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create wrong book index: %w", err)
	}
	return nil
}

func (m *Mongo) IDs(ctx context.Context, subject string) ([]int, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "questionId", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.M{"subject": subject}, opts)
	if err != nil {
		return nil, fmt.Errorf("list wrong book: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []wrongBookEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode wrong book: %w", err)
	}
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.QuestionID
	}
	return ids, nil
}

func (m *Mongo) Add(ctx context.Context, subject string, id int) error {
	if err := validSubject(subject); err != nil {
		return err
	}
	filter := bson.M{"subject": subject, "questionId": id}
	update := bson.M{"$setOnInsert": wrongBookEntry{Subject: subject, QuestionID: id, CreatedAt: time.Now().UTC()}}
	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("add to wrong book: %w", err)
	}
	return nil
}

func (m *Mongo) Remove(ctx context.Context, subject string, id int) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"subject": subject, "questionId": id})
	if err != nil {
		return fmt.Errorf("remove from wrong book: %w", err)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
