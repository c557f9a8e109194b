package mongo

import (
	"context"
	"errors"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/gobii-run/agentcore/archive"
)

const (
	defaultArchiveCollection = "prompt_archives"
	defaultBlobCollection    = "prompt_blobs"
	defaultTimeout           = 5 * time.Second
	clientName               = "archive-mongo"
)

// Client exposes Mongo-backed operations for prompt archives.
type Client interface {
	Name() string
	Ping(ctx context.Context) error

	InsertArchive(ctx context.Context, row archive.PromptArchive) error
	LoadArchive(ctx context.Context, id string) (archive.PromptArchive, error)
	LoadBlob(ctx context.Context, contentHash string) (system, user string, err error)
	UpsertBlob(ctx context.Context, contentHash, storageKey, system, user string) error

	ArchivesOlderThan(ctx context.Context, cutoff time.Time) ([]archive.PromptArchive, error)
	DeleteArchive(ctx context.Context, id string) (contentHash string, err error)
	ReleaseBlob(ctx context.Context, contentHash string) error
}

// Options configures the Mongo client implementation.
type Options struct {
	Client             *mongodriver.Client
	Database           string
	ArchiveCollection  string
	BlobCollection     string
	Timeout            time.Duration
}

type client struct {
	mongo      *mongodriver.Client
	archives   collection
	blobs      collection
	timeout    time.Duration
}

// New returns a Client backed by the provided MongoDB client.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	archiveColl := opts.ArchiveCollection
	if archiveColl == "" {
		archiveColl = defaultArchiveCollection
	}
	blobColl := opts.BlobCollection
	if blobColl == "" {
		blobColl = defaultBlobCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db := opts.Client.Database(opts.Database)
	archiveWrapper := mongoCollection{coll: db.Collection(archiveColl)}
	blobWrapper := mongoCollection{coll: db.Collection(blobColl)}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ensureIndexes(ctx, archiveWrapper, blobWrapper); err != nil {
		return nil, err
	}

	return &client{mongo: opts.Client, archives: archiveWrapper, blobs: blobWrapper, timeout: timeout}, nil
}

func (c *client) Name() string { return clientName }

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) InsertArchive(ctx context.Context, row archive.PromptArchive) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	doc := archiveDocument{
		ID:           row.ID,
		AgentID:      row.AgentID,
		StepID:       row.StepID,
		ContentHash:  row.ContentHash,
		StorageKey:   row.StorageKey,
		TokensBefore: row.TokensBefore,
		TokensAfter:  row.TokensAfter,
		TokensSaved:  row.TokensSaved,
		RenderedAt:   row.RenderedAt,
	}
	_, err := c.archives.InsertOne(ctx, doc)
	return err
}

func (c *client) LoadArchive(ctx context.Context, id string) (archive.PromptArchive, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var doc archiveDocument
	if err := c.archives.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return archive.PromptArchive{}, archive.ErrNotFound
		}
		return archive.PromptArchive{}, err
	}
	return archive.PromptArchive{
		ID:           doc.ID,
		AgentID:      doc.AgentID,
		StepID:       doc.StepID,
		ContentHash:  doc.ContentHash,
		StorageKey:   doc.StorageKey,
		TokensBefore: doc.TokensBefore,
		TokensAfter:  doc.TokensAfter,
		TokensSaved:  doc.TokensSaved,
		RenderedAt:   doc.RenderedAt,
	}, nil
}

func (c *client) LoadBlob(ctx context.Context, contentHash string) (string, string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var doc blobDocument
	filter := bson.M{"_id": contentHash}
	if err := c.blobs.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return "", "", archive.ErrNotFound
		}
		return "", "", err
	}
	return doc.System, doc.User, nil
}

func (c *client) UpsertBlob(ctx context.Context, contentHash, storageKey, system, user string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": contentHash}
	update := bson.M{
		"$setOnInsert": bson.M{
			"storage_key": storageKey,
			"system":      system,
			"user":        user,
		},
		"$inc": bson.M{"ref_count": 1},
	}
	_, err := c.blobs.UpsertOne(ctx, filter, update)
	return err
}

func (c *client) ArchivesOlderThan(ctx context.Context, cutoff time.Time) ([]archive.PromptArchive, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"rendered_at": bson.M{"$lt": cutoff}}
	cur, err := c.archives.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []archiveDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	rows := make([]archive.PromptArchive, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, archive.PromptArchive{
			ID:           d.ID,
			AgentID:      d.AgentID,
			StepID:       d.StepID,
			ContentHash:  d.ContentHash,
			StorageKey:   d.StorageKey,
			TokensBefore: d.TokensBefore,
			TokensAfter:  d.TokensAfter,
			TokensSaved:  d.TokensSaved,
			RenderedAt:   d.RenderedAt,
		})
	}
	return rows, nil
}

func (c *client) DeleteArchive(ctx context.Context, id string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var doc archiveDocument
	filter := bson.M{"_id": id}
	if err := c.archives.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return "", archive.ErrNotFound
		}
		return "", err
	}
	return doc.ContentHash, nil
}

func (c *client) ReleaseBlob(ctx context.Context, contentHash string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": contentHash}
	update := bson.M{"$inc": bson.M{"ref_count": -1}}
	if _, err := c.blobs.UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	_, err := c.blobs.DeleteOne(ctx, bson.M{"_id": contentHash, "ref_count": bson.M{"$lte": 0}})
	return err
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type archiveDocument struct {
	ID           string    `bson:"_id"`
	AgentID      string    `bson:"agent_id"`
	StepID       string    `bson:"step_id"`
	ContentHash  string    `bson:"content_hash"`
	StorageKey   string    `bson:"storage_key"`
	TokensBefore int       `bson:"tokens_before"`
	TokensAfter  int       `bson:"tokens_after"`
	TokensSaved  int       `bson:"tokens_saved"`
	RenderedAt   time.Time `bson:"rendered_at"`
}

type blobDocument struct {
	ContentHash string `bson:"_id"`
	StorageKey  string `bson:"storage_key"`
	System      string `bson:"system"`
	User        string `bson:"user"`
	RefCount    int    `bson:"ref_count"`
}

func ensureIndexes(ctx context.Context, archives, blobs collection) error {
	_, err := archives.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "rendered_at", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = archives.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "rendered_at", Value: 1}},
	})
	if err != nil {
		return err
	}
	_ = blobs
	return nil
}

type collection interface {
	InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error)
	FindOne(ctx context.Context, filter any) singleResult
	FindOneAndDelete(ctx context.Context, filter any) singleResult
	Find(ctx context.Context, filter any) (cursor, error)
	UpdateOne(ctx context.Context, filter, update any) (*mongodriver.UpdateResult, error)
	UpsertOne(ctx context.Context, filter, update any) (*mongodriver.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any) (*mongodriver.DeleteResult, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type cursor interface {
	All(ctx context.Context, results any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, document)
}

func (c mongoCollection) FindOne(ctx context.Context, filter any) singleResult {
	return mongoSingleResult{res: c.coll.FindOne(ctx, filter)}
}

func (c mongoCollection) FindOneAndDelete(ctx context.Context, filter any) singleResult {
	return mongoSingleResult{res: c.coll.FindOneAndDelete(ctx, filter)}
}

func (c mongoCollection) Find(ctx context.Context, filter any) (cursor, error) {
	return c.coll.Find(ctx, filter)
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update any) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update)
}

func (c mongoCollection) UpsertOne(ctx context.Context, filter, update any) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any) (*mongodriver.DeleteResult, error) {
	return c.coll.DeleteOne(ctx, filter)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoSingleResult struct {
	res *mongodriver.SingleResult
}

func (r mongoSingleResult) Decode(val any) error {
	return r.res.Decode(val)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel) (string, error) {
	return v.view.CreateOne(ctx, model)
}
