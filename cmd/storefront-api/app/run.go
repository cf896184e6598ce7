package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/ttran/storefront-api/configs"
	"github.com/ttran/storefront-api/internal/adapter/cache"
	"github.com/ttran/storefront-api/internal/adapter/http"
	"github.com/ttran/storefront-api/internal/adapter/http/middleware"
	"github.com/ttran/storefront-api/internal/adapter/kafka"
	"github.com/ttran/storefront-api/internal/adapter/queue"
	"github.com/ttran/storefront-api/internal/adapter/repo"
	"github.com/ttran/storefront-api/internal/adapter/stripe"
	"github.com/ttran/storefront-api/internal/logging"
	"github.com/ttran/storefront-api/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logger := logging.Init(cfg.App.Name, "./logs/app.log")

	// init database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	cancel()

	logger.Info("storefront-api: starting up")

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, nil, err
	}

	// init rabbitmq
	conn, err := amqp091.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}

	// infra
	orderRepo := repo.NewMySQLOrderRepo(db)
	inventoryRepo := repo.NewMySQLInventoryRepo(db)
	loyaltyRepo := repo.NewMySQLLoyaltyRepo(db)
	cartRepo := repo.NewMySQLCartRepo(db)
	notificationRepo := repo.NewMySQLNotificationRepo(db)

	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	redisCache := cache.NewRedisCache(rdb, cfg.Cache.TTL)

	notifier, err := queue.NewRabbitNotifier(ch)
	if err != nil {
		return nil, nil, err
	}

	gateway := stripe.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.Currency, cfg.Stripe.Timeout)

	// register queue-handler
	setupQueue(ch, notificationRepo)

	// register kafka-listener
	setupKafkaListener(cfg, orderRepo, redisCache)

	// usecases + handlers + router
	placeUC := usecase.NewPlaceOrder(orderRepo, inventoryRepo, loyaltyRepo,
		cartRepo, gateway, notifier, redisCache, idem, cfg.App.BaseURL)
	finalizeUC := usecase.NewFinalizeOrder(orderRepo, loyaltyRepo, notifier, redisCache)

	oh := http.NewOrderHandler(placeUC, finalizeUC, orderRepo)
	ph := http.NewPaymentHandler(gateway, finalizeUC, cfg.Stripe.WebhookSecret)
	carth := http.NewCartHandler(cartRepo, inventoryRepo)
	lh := http.NewLoyaltyHandler(loyaltyRepo)
	th := http.NewTokenHandler(cfg)
	auth := middleware.NewAuthz(cfg)
	router := http.NewRouter(oh, ph, carth, lh, th, auth)

	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
		_ = rdb.Close()
		_ = db.Close()
	}

	return &App{Router: router}, cleanup, nil
}

func setupQueue(ch *amqp091.Channel, store *repo.MySQLNotificationRepo) {
	h := queue.NewOrderConfirmedHandler(store)

	router := queue.NewRouter(ch, queue.WithPrefetch(50))
	router.Register("notification.order.q", queue.JSONHandler[usecase.OrderConfirmedMsg]{HandleFunc: h.HandleConfirmed})

	if err := router.Start(); err != nil {
		panic(err)
	}
}

func setupKafkaListener(cfg configs.Config, orders *repo.MySQLOrderRepo, redisCache *cache.RedisCache) {
	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		panic(err)
	}

	h := kafka.NewFulfillmentStatusHandler(orders, redisCache)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, h.Handle)
	consumer.Logger = logging.New("kafka-fulfillment")

	go func() {
		if err := consumer.Start(context.Background()); err != nil {
			panic(err)
		}
	}()
}
