package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ayvaro/resource-reservation/internal/booking"
	"github.com/ayvaro/resource-reservation/internal/config"
	"github.com/ayvaro/resource-reservation/internal/database"
	"github.com/ayvaro/resource-reservation/internal/handler"
	"github.com/ayvaro/resource-reservation/internal/jobs"
	"github.com/ayvaro/resource-reservation/internal/middleware"
	"github.com/ayvaro/resource-reservation/internal/queue"
	"github.com/ayvaro/resource-reservation/internal/repository"
	"github.com/ayvaro/resource-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	resources := repository.NewResourceRepo(db)
	reservations := repository.NewReservationRepo(db)

	// The notification queue is optional: with no broker configured the
	// service simply skips publishing.
	var events booking.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartNotificationConsumer(cfg.AMQPURL); err != nil {
				log.Printf("notification consumer stopped: %v", err)
			}
		}()
	} else {
		log.Println("AMQP_URL not set; notification events disabled")
	}

	svc := booking.NewService(resources, reservations, events)

	sweeper, err := jobs.StartSweeper(cfg.SweepSpec, svc)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer sweeper.Stop()

	e := echo.New()

	// Redis is optional too: without it the rate limiter and response cache
	// middleware are skipped and every request hits the handlers directly.
	if rdb := config.NewRedisClient(); rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	} else {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	resourceHandler := handler.NewResourceHandler(resources, svc)
	reservationHandler := handler.NewReservationHandler(svc)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterResources(e, resourceHandler, reservationHandler, cfg.JWTSecret)
	router.RegisterReservations(e, reservationHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
