package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-ticketing/booking"
	"event-ticketing/config"
	"event-ticketing/database"
	"event-ticketing/handlers"
	"event-ticketing/notify"
	"event-ticketing/obs"
	"event-ticketing/router"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "event-ticketing"

type store interface {
	booking.Store
	handlers.EventStore
	handlers.UserStore
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pricing, err := booking.ParsePricing(cfg.AnalyticsPricing)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := obs.InitTracer(ctx, serviceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Printf("tracer shutdown: %v", err)
			}
		}()
	}

	opts := []booking.Option{
		booking.WithPricing(pricing),
		booking.WithTicketLimit(cfg.MaxTicketsPerEvent),
	}
	if cfg.AMQPURL != "" {
		publisher, err := notify.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, booking.WithPublisher(publisher))
	}

	var st store
	switch cfg.Store {
	case config.StoreMongo:
		db, err := database.DBInit(ctx, cfg.MongoConnString, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Printf("mongo disconnect: %v", err)
			}
		}()
		if err := database.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		st = database.NewMongoStore(db, cfg.MongoTransactions)
	case config.StoreMemory:
		mem := database.NewMemoryStore()
		if cfg.LocalDBPath != "" {
			local, err := database.ReadLocalDB(cfg.LocalDBPath)
			if err != nil {
				return err
			}
			mem.Restore(local)
			defer func() {
				if err := database.CommitLocalDB(cfg.LocalDBPath, mem.Snapshot()); err != nil {
					log.Printf("commit local db: %v", err)
				}
			}()
		}
		st = mem
	}

	h := handlers.New(booking.NewService(st, opts...), st, st, cfg.SigningKey)
	h.TokenTTL = cfg.TokenTTL
	h.TicketLimit = cfg.MaxTicketsPerEvent

	app := fiber.New()
	router.SetupRoutes(app, h, cfg.SigningKey)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("%v listening on %v with %v store", serviceName, cfg.Addr(), cfg.Store)
	return app.Listen(cfg.Addr())
}
