package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// productDocument is the catalog's storage shape. Prices are Decimal128.
type productDocument struct {
	ID        string               `bson:"_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Stock     int                  `bson:"stock"`
	Status    string               `bson:"status"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (d *productDocument) toEntity() (*entity.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for product %s: %w", d.Price.String(), d.ID, err)
	}
	return &entity.Product{
		ID:        d.ID,
		Name:      d.Name,
		Price:     price,
		Stock:     d.Stock,
		Status:    entity.ProductStatus(d.Status),
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func toProductDocument(p *entity.Product) (*productDocument, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return nil, fmt.Errorf("invalid price %s for product %s: %w", p.Price, p.ID, err)
	}
	return &productDocument{
		ID:        p.ID,
		Name:      p.Name,
		Price:     price,
		Stock:     p.Stock,
		Status:    string(p.Status),
		UpdatedAt: p.UpdatedAt,
	}, nil
}

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.ProductRepository {
	return &productRepository{
		collection: client.Database(cfg.Database).Collection(cfg.ProductsCollection),
	}
}

func (r *productRepository) GetByID(ctx context.Context, productID string) (*entity.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", productID, err)
	}
	return doc.toEntity()
}

// Upsert writes a product document. The storefront catalog owns products;
// this exists for seeding and tests.
func Upsert(ctx context.Context, collection *mongo.Collection, product *entity.Product) error {
	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}
	_, err = collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", product.ID, err)
	}
	return nil
}
