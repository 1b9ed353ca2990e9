package source

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "masonry"
	DefaultMongoCollection = "items"
	mongoConnectTimeout    = 10 * time.Second
)

// MongoOptions configures a MongoSource.
type MongoOptions struct {
	URI        string `toml:"-"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`

	// SortField orders the catalog. Empty keeps natural (insertion) order.
	SortField string `toml:"sort_field"`

	// Limit caps the number of items loaded. Zero means no limit.
	Limit int64 `toml:"limit"`
}

// MongoSource reads items from a MongoDB collection. Documents use the
// same field names as catalog files (id, caption, natural_width, ...).
type MongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
	opts   MongoOptions
	logger *log.Logger
}

// NewMongoSource connects to opts.URI and verifies the connection.
func NewMongoSource(ctx context.Context, opts MongoOptions, logger *log.Logger) (*MongoSource, error) {
	if opts.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo uri is required")
	}
	if opts.Database == "" {
		opts.Database = DefaultMongoDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultMongoCollection
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	return NewMongoSourceFromClient(client, opts, logger), nil
}

// NewMongoSourceFromClient wraps an existing client.
func NewMongoSourceFromClient(client *mongo.Client, opts MongoOptions, logger *log.Logger) *MongoSource {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &MongoSource{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
		opts:   opts,
		logger: logger,
	}
}

// Name returns "mongo".
func (s *MongoSource) Name() string { return "mongo" }

// Load reads every document in the collection.
func (s *MongoSource) Load(ctx context.Context) ([]catalog.Item, error) {
	find := options.Find()
	if s.opts.SortField != "" {
		find.SetSort(bson.D{{Key: s.opts.SortField, Value: 1}})
	}
	if s.opts.Limit > 0 {
		find.SetLimit(s.opts.Limit)
	}

	cur, err := s.coll.Find(ctx, bson.D{}, find)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "query %s.%s", s.opts.Database, s.opts.Collection)
	}
	defer cur.Close(ctx)

	var items []catalog.Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode %s.%s", s.opts.Database, s.opts.Collection)
	}
	s.logger.Debug("mongo catalog loaded", "collection", s.opts.Collection, "items", len(items))
	return catalog.Normalize(items), nil
}

// Insert writes items to the collection, for seeding.
func (s *MongoSource) Insert(ctx context.Context, items []catalog.Item) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]any, len(items))
	for i, it := range items {
		docs[i] = it
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "insert into %s.%s", s.opts.Database, s.opts.Collection)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
