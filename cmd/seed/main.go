// Command seed loads catalog products from a JSON file into MongoDB for local
// development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	mongoadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/mongo"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
)

func main() {
	file := flag.String("file", "products.json", "JSON array of products to upsert")
	flag.Parse()

	cfg := config.MustLoad()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("cannot read %s: %v", *file, err)
	}
	var products []*entity.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		log.Fatalf("cannot decode %s: %v", *file, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		log.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	collection := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.ProductsCollection)
	now := time.Now().UTC()
	for _, product := range products {
		if product.Status == "" {
			product.Status = entity.ProductStatusActive
		}
		if product.UpdatedAt.IsZero() {
			product.UpdatedAt = now
		}
		if err := mongoadapter.Upsert(ctx, collection, product); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}
	log.Printf("Seeded %d products into %s.%s", len(products), cfg.MongoDB.Database, cfg.MongoDB.ProductsCollection)
}
