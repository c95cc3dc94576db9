package source

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/raster"
	"github.com/calavorn/realmmap/pkg/region"
)

// MongoOptions configures a MongoSource.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	MapDir     string
}

// MongoSource stores one document per tier:
//
//	{_id: "county", regions: {"c_ashford": {name, rgb, overlord, ...}}, updated_at}
//
// Base maps are read from MapDir like [DirSource] does.
type MongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
	mapDir string
	loc    string
}

type mongoRegion struct {
	Name        string   `bson:"name"`
	RGB         string   `bson:"rgb"`
	Overlord    string   `bson:"overlord,omitempty"`
	Subjects    []string `bson:"subjects,omitempty"`
	Size        int      `bson:"size"`
	SubjectSize int      `bson:"subject_size"`
	Description string   `bson:"description,omitempty"`
	Banner      string   `bson:"banner,omitempty"`
}

type tierDocument struct {
	Tier      string                 `bson:"_id"`
	Regions   map[string]mongoRegion `bson:"regions"`
	UpdatedAt time.Time              `bson:"updated_at"`
}

// OpenMongo connects and pings the server.
func OpenMongo(ctx context.Context, o MongoOptions) (*MongoSource, error) {
	if o.URI == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "mongo URI not configured")
	}
	if o.Database == "" {
		o.Database = "realmmap"
	}
	if o.Collection == "" {
		o.Collection = "tiers"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(o.URI))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "ping mongo")
	}
	return &MongoSource{
		client: client,
		coll:   client.Database(o.Database).Collection(o.Collection),
		mapDir: o.MapDir,
		loc:    o.Database + "." + o.Collection,
	}, nil
}

func (s *MongoSource) Location() string { return describe(KindMongo, s.loc) }

func (s *MongoSource) Dataset(ctx context.Context, tier region.Tier) (region.Dataset, error) {
	var doc tierDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": string(tier)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, tierNotFound(tier, s.loc)
	}
	if err != nil {
		return nil, unavailable(err, tier, "query dataset")
	}
	return fromDocument(doc)
}

// PutDataset stores ds as the tier's document, replacing any previous one.
func (s *MongoSource) PutDataset(ctx context.Context, tier region.Tier, ds region.Dataset) error {
	doc := toDocument(tier, ds, time.Now().UTC())
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": string(tier)}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable(err, tier, "store dataset")
	}
	return nil
}

func (s *MongoSource) BaseMap(ctx context.Context, tier region.Tier) (*raster.Map, error) {
	if s.mapDir == "" {
		return nil, errs.New(errs.ErrCodeDataUnavailable, "no map directory configured for tier %s", tier)
	}
	return loadMap(s.mapDir, tier)
}

func (s *MongoSource) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func fromDocument(doc tierDocument) (region.Dataset, error) {
	ds := make(region.Dataset, len(doc.Regions))
	for id, r := range doc.Regions {
		c, err := region.ParseColor(r.RGB)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidDataset, err, "region %s", id)
		}
		ds[id] = region.Region{
			ID:          id,
			Name:        r.Name,
			Color:       c,
			Overlord:    r.Overlord,
			Subjects:    r.Subjects,
			Size:        r.Size,
			SubjectSize: r.SubjectSize,
			Description: r.Description,
			Banner:      r.Banner,
		}
	}
	return ds, nil
}

func toDocument(tier region.Tier, ds region.Dataset, now time.Time) tierDocument {
	doc := tierDocument{Tier: string(tier), Regions: make(map[string]mongoRegion, len(ds)), UpdatedAt: now}
	for id, r := range ds {
		doc.Regions[id] = mongoRegion{
			Name:        r.Name,
			RGB:         r.Color.String(),
			Overlord:    r.Overlord,
			Subjects:    r.Subjects,
			Size:        r.Size,
			SubjectSize: r.SubjectSize,
			Description: r.Description,
			Banner:      r.Banner,
		}
	}
	return doc
}

var _ Source = (*MongoSource)(nil)
