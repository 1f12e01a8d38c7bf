// Package mongostore implements the "mongo" inventory backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

const (
	backendName    = "mongo"
	collectionName = "properties"
)

var tracer = otel.Tracer("mongostore")

// propertyDoc is the stored document. Prices are Decimal128 and
// timestamps keep millisecond precision, the BSON datetime resolution.
type propertyDoc struct {
	ID              string           `bson:"_id"`
	Tower           string           `bson:"tower"`
	UnitNumber      string           `bson:"unit_number"`
	Floor           string           `bson:"floor,omitempty"`
	Typology        string           `bson:"typology,omitempty"`
	SqmConstruction *bson.Decimal128 `bson:"sqm_construction,omitempty"`
	SqmTerrace      *bson.Decimal128 `bson:"sqm_terrace,omitempty"`
	ListPrice       bson.Decimal128  `bson:"list_price"`
	Status          string           `bson:"status"`
	Description     string           `bson:"description,omitempty"`
	Attachments     []string         `bson:"attachments,omitempty"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) bson.Decimal128 {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		// decimal.String never produces an unparsable literal
		panic(fmt.Sprintf("mongostore: decimal %s: %v", d, err))
	}
	return v
}

func nullToDecimal128(d decimal.NullDecimal) *bson.Decimal128 {
	if !d.Valid {
		return nil
	}
	v := toDecimal128(d.Decimal)
	return &v
}

func fromDecimal128(v bson.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func fromNullDecimal128(v *bson.Decimal128) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(fromDecimal128(*v))
}

func docFrom(p domain.Property) propertyDoc {
	return propertyDoc{
		ID:              p.ID,
		Tower:           p.Tower,
		UnitNumber:      p.UnitNumber,
		Floor:           p.Floor,
		Typology:        p.Typology,
		SqmConstruction: nullToDecimal128(p.SqmConstruction),
		SqmTerrace:      nullToDecimal128(p.SqmTerrace),
		ListPrice:       toDecimal128(p.ListPrice),
		Status:          string(p.Status),
		Description:     p.Description,
		Attachments:     p.Attachments,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (d propertyDoc) toDomain() domain.Property {
	return domain.Property{
		ID:              d.ID,
		Tower:           d.Tower,
		UnitNumber:      d.UnitNumber,
		Floor:           d.Floor,
		Typology:        d.Typology,
		SqmConstruction: fromNullDecimal128(d.SqmConstruction),
		SqmTerrace:      fromNullDecimal128(d.SqmTerrace),
		ListPrice:       fromDecimal128(d.ListPrice),
		Status:          domain.PropertyStatus(d.Status),
		Description:     d.Description,
		Attachments:     d.Attachments,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// InventoryProvider implements port.InventoryProvider on a MongoDB collection.
type InventoryProvider struct {
	coll   *mongo.Collection
	logger *zap.Logger
	now    func() time.Time
}

func NewInventoryProvider(db *mongo.Database, logger *zap.Logger) *InventoryProvider {
	return &InventoryProvider{
		coll:   db.Collection(collectionName),
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for created_at / updated_at.
func (p *InventoryProvider) WithClock(now func() time.Time) *InventoryProvider {
	p.now = now
	return p
}

func (p *InventoryProvider) Backend() string { return backendName }

// EnsureIndexes creates the (tower, unit_number) index used by GetAll.
func (p *InventoryProvider) EnsureIndexes(ctx context.Context) error {
	_, err := p.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tower", Value: 1}, {Key: "unit_number", Value: 1}},
	})
	return p.fail("EnsureIndexes", err)
}

func (p *InventoryProvider) stamp() time.Time {
	return p.now().UTC().Truncate(time.Millisecond)
}

func (p *InventoryProvider) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	p.logger.Error("mongo operation failed", zap.String("op", op), zap.Error(err))
	return domain.Provider(backendName, op, err)
}

func (p *InventoryProvider) GetAll(ctx context.Context) ([]domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Mongo.Inventory.GetAll")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "tower", Value: 1}, {Key: "unit_number", Value: 1}})
	cursor, err := p.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, p.fail("GetAll", err)
	}
	defer cursor.Close(ctx)

	out := []domain.Property{}
	for cursor.Next(ctx) {
		var doc propertyDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, p.fail("GetAll", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, p.fail("GetAll", err)
	}
	span.SetAttributes(attribute.Int("inventory.count", len(out)))
	return out, nil
}

func (p *InventoryProvider) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Mongo.Inventory.GetByID")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	var doc propertyDoc
	err := p.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, p.fail("GetByID", err)
	}
	prop := doc.toDomain()
	return &prop, nil
}

func (p *InventoryProvider) Create(ctx context.Context, in domain.PropertyInput) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Mongo.Inventory.Create")
	defer span.End()

	if err := in.Check(); err != nil {
		return nil, err
	}
	prop := in.NewProperty(uuid.NewString(), p.stamp())
	if _, err := p.coll.InsertOne(ctx, docFrom(prop)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &domain.ErrValidation{Field: "id", Value: prop.ID, Message: "already exists"}
		}
		return nil, p.fail("Create", err)
	}
	span.SetAttributes(attribute.String("property.id", prop.ID))
	return &prop, nil
}

// Update replaces the merged document with FindOneAndUpdate filtered on the
// previous updated_at, which MongoDB applies atomically per document.
func (p *InventoryProvider) Update(ctx context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	ctx, span := tracer.Start(ctx, "Mongo.Inventory.Update")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	if err := patch.Check(); err != nil {
		return nil, err
	}
	current, err := p.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &domain.ErrNotFound{Resource: "property", ID: id}
	}
	if patch.ExpectStatus != nil && current.Status != *patch.ExpectStatus {
		return nil, &domain.ErrConcurrentModification{Resource: "property", ID: id, Field: "status"}
	}

	next := patch.Apply(*current)
	next.UpdatedAt = p.stamp()
	if !next.UpdatedAt.After(current.UpdatedAt) {
		next.UpdatedAt = current.UpdatedAt.Add(time.Millisecond)
	}
	doc := docFrom(next)

	filter := bson.M{"_id": id, "updated_at": current.UpdatedAt}
	if patch.ExpectStatus != nil {
		filter["status"] = string(*patch.ExpectStatus)
	}
	update := bson.M{"$set": bson.M{
		"tower":            doc.Tower,
		"unit_number":      doc.UnitNumber,
		"floor":            doc.Floor,
		"typology":         doc.Typology,
		"sqm_construction": doc.SqmConstruction,
		"sqm_terrace":      doc.SqmTerrace,
		"list_price":       doc.ListPrice,
		"status":           doc.Status,
		"description":      doc.Description,
		"attachments":      doc.Attachments,
		"updated_at":       doc.UpdatedAt,
	}}

	var updated propertyDoc
	err = p.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.ErrConcurrentModification{Resource: "property", ID: id, Field: "updated_at"}
		}
		return nil, p.fail("Update", err)
	}
	prop := updated.toDomain()
	return &prop, nil
}

func (p *InventoryProvider) Remove(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Mongo.Inventory.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("property.id", id))

	res, err := p.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return p.fail("Remove", err)
	}
	if res.DeletedCount == 0 {
		return &domain.ErrNotFound{Resource: "property", ID: id}
	}
	return nil
}
