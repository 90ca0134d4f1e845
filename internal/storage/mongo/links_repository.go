package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/shorty/internal/infrastructure/db"
	"github.com/IgorGrieder/shorty/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const linksCollection = "links"

type LinksRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type linkDoc struct {
	Code        string     `bson:"code"`
	Target      string     `bson:"target"`
	Clicks      int64      `bson:"clicks"`
	LastClicked *time.Time `bson:"lastClicked"`
	CreatedAt   time.Time  `bson:"createdAt"`
}

func NewLinksRepository(ctx context.Context, m *db.Mongo) (*LinksRepository, error) {
	if m == nil || m.Client == nil {
		return nil, errors.New("mongo client is nil")
	}
	repo := &LinksRepository{
		client: m.Client,
		coll:   m.Collection(linksCollection),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_code"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create link indexes: %w", err)
	}

	return repo, nil
}

func (r *LinksRepository) Create(ctx context.Context, code, target string, createdAt time.Time) (*links.Link, error) {
	// BSON dates carry milliseconds; truncate so the returned link matches
	// what a later read sees.
	doc := linkDoc{
		Code:      code,
		Target:    target,
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, links.ErrDuplicateCode
	}
	return nil, fmt.Errorf("insert link: %w", err)
}

func (r *LinksRepository) Get(ctx context.Context, code string) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}
	return nil, fmt.Errorf("get link: %w", err)
}

func (r *LinksRepository) List(ctx context.Context) ([]links.Link, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]links.Link, 0)
	for cursor.Next(ctx) {
		var doc linkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode link: %w", err)
		}
		out = append(out, *mapLinkDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return out, nil
}

func (r *LinksRepository) Delete(ctx context.Context, code string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"code": code})
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *LinksRepository) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check link: %w", err)
	}
	return n > 0, nil
}

// RecordClick uses an update pipeline so last_clicked can be compared
// against the document's own createdAt. $max skips a missing lastClicked.
func (r *LinksRepository) RecordClick(ctx context.Context, code string, at time.Time) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "clicks", Value: bson.D{{Key: "$add", Value: bson.A{"$clicks", 1}}}},
			{Key: "lastClicked", Value: bson.D{{Key: "$max", Value: bson.A{"$lastClicked", at.UTC(), "$createdAt"}}}},
		}}},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"code": code}, update)
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	if res.MatchedCount == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close is a no-op; the client belongs to the db.Mongo handle.
func (r *LinksRepository) Close() error {
	return nil
}

func mapLinkDoc(doc linkDoc) *links.Link {
	link := &links.Link{
		Code:      doc.Code,
		Target:    doc.Target,
		Clicks:    doc.Clicks,
		CreatedAt: doc.CreatedAt.UTC(),
	}
	if doc.LastClicked != nil {
		t := doc.LastClicked.UTC()
		link.LastClicked = &t
	}
	return link
}
