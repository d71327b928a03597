package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"fleetbook/pkg/config"
	"fleetbook/pkg/model"
	"fleetbook/pkg/money"
)

// SeedDemoCars populates the catalog with a small demo fleet. It is a no-op
// when the collection already has documents, so restarts never duplicate cars.
// Only wired up when SEED_DEMO_DATA is set; production catalogs are managed
// by the fleet admin tooling.
func SeedDemoCars(ctx context.Context, cfg *config.Config) error {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	collection := db.Collection(CollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to check car catalog: %w", err)
	}
	if count > 0 {
		cfg.Log.Info("Car catalog already populated, skipping seed", "cars", count)
		return nil
	}

	cars := demoFleet()
	docs := make([]any, len(cars))
	for i := range cars {
		docs[i] = cars[i]
	}

	if _, err := collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed car catalog: %w", err)
	}

	cfg.Log.Info("Seeded demo car catalog", "cars", len(cars))
	return nil
}

func demoFleet() []model.Car {
	return []model.Car{
		{
			Brand: "Toyota", Model: "Camry", Year: 2023, PricePerDay: money.Cents(4500),
			Description: "A reliable and comfortable midsize sedan perfect for business trips or family vacations.",
		},
		{
			Brand: "Honda", Model: "Civic", Year: 2024, PricePerDay: money.Cents(4000),
			Description: "Fuel-efficient compact car with modern features and excellent safety ratings.",
		},
		{
			Brand: "Tesla", Model: "Model 3", Year: 2024, PricePerDay: money.Cents(8500),
			Description: "Electric vehicle with cutting-edge technology, autopilot features, and zero emissions.",
		},
		{
			Brand: "BMW", Model: "X5", Year: 2023, PricePerDay: money.Cents(9500),
			Description: "Luxury SUV with premium comfort, advanced technology, and spacious interior.",
		},
		{
			Brand: "Ford", Model: "Mustang", Year: 2023, PricePerDay: money.Cents(7500),
			Description: "Iconic American muscle car with powerful performance and head-turning style.",
		},
		{
			Brand: "Mercedes-Benz", Model: "E-Class", Year: 2024, PricePerDay: money.Cents(10000),
			Description: "Premium luxury sedan combining elegance, performance, and advanced safety features.",
		},
		{
			Brand: "Chevrolet", Model: "Tahoe", Year: 2023, PricePerDay: money.Cents(8000),
			Description: "Full-size SUV perfect for large groups or families with plenty of cargo space.",
		},
		{
			Brand: "Audi", Model: "A4", Year: 2024, PricePerDay: money.Cents(7000),
			Description: "Sophisticated sedan with quattro all-wheel drive and premium interior craftsmanship.",
		},
		{
			Brand: "Jeep", Model: "Wrangler", Year: 2023, PricePerDay: money.Cents(6500),
			Description: "Rugged off-road vehicle perfect for adventure seekers and outdoor enthusiasts.",
		},
		{
			Brand: "Volkswagen", Model: "Passat", Year: 2023, PricePerDay: money.Cents(5000),
			Description: "Spacious and comfortable family sedan with excellent fuel economy.",
		},
	}
}
