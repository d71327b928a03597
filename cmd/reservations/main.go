package main

import (
	"context"

	"fleetbook/internal/catalog"
	cataloghandler "fleetbook/internal/catalog/handler"
	"fleetbook/internal/reservations/events"
	"fleetbook/internal/reservations/handler"
	"fleetbook/internal/reservations/repository"
	"fleetbook/internal/reservations/service"
	"fleetbook/internal/reservations/validator"
	"fleetbook/pkg/app"
	"fleetbook/pkg/config"
	"fleetbook/pkg/kafka"
	kafka_config "fleetbook/pkg/kafka/config"
	kafkamiddleware "fleetbook/pkg/kafka/middleware"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")

	if cfg.SeedDemoData {
		if err := catalog.SeedDemoCars(context.Background(), cfg); err != nil {
			cfg.Log.Fatal("Failed to seed car catalog", "error", err)
		}
	}

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	carRepo := catalog.NewMongoCarRepository(cfg)
	reservationService := initServices(cfg, carRepo, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewReservationHandler(reservationService, cfg.Log),
		cataloghandler.NewCarHandler(carRepo, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, carRepo catalog.CarRepository, publisher *events.Publisher) service.ReservationService {
	reservationValidator := validator.NewReservationValidator(cfg.Log)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewCarLockRepository(cfg)
	auditRepo := repository.NewAuditLogRepository(cfg)

	reservationService := service.NewReservationService(
		reservationRepo,
		lockRepo,
		auditRepo,
		carRepo,
		reservationValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService
}

// initPublisher wires the Kafka producer when brokers are configured. Without
// brokers the service runs fine; lifecycle events are simply not emitted.
func initPublisher(cfg *config.Config) *events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, reservation events disabled")
		return events.NewPublisher(nil, cfg.Log)
	}

	producerCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producerCfg.Brokers = cfg.KafkaBrokers

	producer, err := kafka.NewProducer(producerCfg, cfg.ReservationTopic, cfg.ReservationDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Reservation event publisher initialized",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.ReservationTopic,
	)
	return events.NewPublisher(producer, cfg.Log)
}
