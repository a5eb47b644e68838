package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"restaurant-service/internal/api"
	"restaurant-service/internal/config"
	"restaurant-service/internal/consumer"
	"restaurant-service/internal/repository"
	"restaurant-service/internal/service"
	"restaurant-service/migrations"
)

func connectDBEnv(host, port, user, pass, dbname string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)

	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("Connected to DB %s", dbname)
				return db, nil
			}
		}
		log.Printf("Retry %d: Failed to connect to DB %s (%s:%s): %v", i+1, dbname, host, port, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %v", dbname, host, port, err)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	db, err := connectDBEnv(
		envOrDefault("DB_HOST", "127.0.0.1"),
		envOrDefault("DB_PORT", "3306"),
		envOrDefault("DB_USER", "root"),
		os.Getenv("DB_PASS"),
		envOrDefault("DB_NAME", "restaurant"),
	)
	if err != nil {
		panic(err)
	}

	if err := migrations.AutoMigrateUsers(3, db); err != nil {
		log.Fatalf("Failed to migrate users table: %v", err)
	}
	if err := migrations.AutoMigrateCatalog(3, db); err != nil {
		log.Fatalf("Failed to migrate catalog tables: %v", err)
	}
	if err := migrations.AutoMigrateOrders(3, db); err != nil {
		log.Fatalf("Failed to migrate order tables: %v", err)
	}
	if err := migrations.SeedCatalog(db); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: envOrDefault("REDIS_ADDR", "localhost:6379"),
	})

	kafkaWriter := config.NewKafkaWriter("order-topic")

	catalogRepo := repository.NewCatalogRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)

	catalogService := service.NewCatalogService(catalogRepo, inventoryRepo, rdb)
	orderService := service.NewOrderService(orderRepo, catalogRepo, kafkaWriter, rdb)
	userService := service.NewUserService(userRepo, rdb)

	catalogHandler := api.NewCatalogHandler(catalogService)
	orderHandler := api.NewOrderHandler(orderService)
	userHandler := api.NewUserHandler(userService)

	if err := catalogService.PreWarmCache(context.Background()); err != nil {
		log.Printf("Warning: failed to pre-warm catalog cache: %v", err)
	}

	cacheConsumer := consumer.NewConsumer(rdb)
	go cacheConsumer.StartKafkaConsumer()

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(10),
				Burst:     30,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	jwtMiddleware := echojwt.WithConfig(echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(service.JwtCustomClaims)
		},
		SigningKey: service.JwtSecret(),
	})

	e.POST("/register", userHandler.Register)
	e.POST("/login", userHandler.Login)

	e.GET("/menu/dishes", catalogHandler.ListDishes)
	e.GET("/menu/ingredients", catalogHandler.ListIngredients)
	e.GET("/menu/sizes", catalogHandler.SizeConfig)
	e.PUT("/menu/ingredients/:id/restock", catalogHandler.RestockIngredient, jwtMiddleware)

	secondFactor := e.Group("/2fa", jwtMiddleware)
	secondFactor.POST("/request", userHandler.RequestSecondFactor)
	secondFactor.POST("/verify", userHandler.VerifySecondFactor)

	orders := e.Group("/orders", jwtMiddleware)
	orders.POST("/configure/add", orderHandler.ConfigureAdd)
	orders.POST("/configure/remove", orderHandler.ConfigureRemove)
	orders.POST("/configure/size", orderHandler.ConfigureSizeChange)
	orders.POST("", orderHandler.SubmitOrder)
	orders.GET("", orderHandler.ListOrders)
	orders.GET("/:id", orderHandler.GetOrder)
	orders.DELETE("/:id", orderHandler.CancelOrder)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "restaurant-service",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.Logger.Fatal(e.Start(":" + envOrDefault("PORT", "8080")))
}
