package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/database"
	"github.com/rewear-app/rewear-api/internal/handler"
	"github.com/rewear-app/rewear-api/internal/middleware"
	"github.com/rewear-app/rewear-api/internal/queue"
	"github.com/rewear-app/rewear-api/internal/repository"
	"github.com/rewear-app/rewear-api/internal/router"
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

	// Redis is optional: rate limiting and response caching degrade to
	// no-ops when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	userRepo := repository.NewUserRepo(db)
	itemRepo := repository.NewItemRepo(db)
	swapRepo := repository.NewSwapRequestRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	ledger := repository.NewLedger(userRepo, txRepo)

	authHandler := handler.NewAuthHandler(cfg, userRepo, txRepo)
	itemHandler := handler.NewItemHandler(itemRepo, userRepo, swapRepo, ledger)
	swapHandler := handler.NewSwapHandler(swapRepo, itemRepo, userRepo)
	creditHandler := handler.NewCreditHandler(userRepo, txRepo, paymentRepo, ledger)
	userHandler := handler.NewUserHandler(cfg, userRepo, itemRepo)
	adminHandler := handler.NewAdminHandler(userRepo, itemRepo, txRepo, ledger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cacheMW := middleware.NewCatalogCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, itemHandler, cacheMW)
	router.RegisterProtected(e, cfg.JWTSecret, itemHandler, swapHandler, creditHandler, userHandler)
	router.RegisterAdmin(e, cfg.JWTSecret, adminHandler, userHandler)

	// The activity consumer keeps its own reconnect loop for the life of
	// the process.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
