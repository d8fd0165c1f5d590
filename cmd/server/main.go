package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/truongnx/plantshop/internal/config"
	"github.com/truongnx/plantshop/internal/es"
	"github.com/truongnx/plantshop/internal/handlers"
	carthdl "github.com/truongnx/plantshop/internal/handlers/cart"
	orderhdl "github.com/truongnx/plantshop/internal/handlers/order"
	paymenthdl "github.com/truongnx/plantshop/internal/handlers/payment"
	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/logging"
	authmw "github.com/truongnx/plantshop/internal/middleware/auth"
	"github.com/truongnx/plantshop/internal/mykafka"
	cartsvc "github.com/truongnx/plantshop/internal/service/cart"
	ordersvc "github.com/truongnx/plantshop/internal/service/order"
	paysvc "github.com/truongnx/plantshop/internal/service/payment"
	httpserver "github.com/truongnx/plantshop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	jwtSecret := []byte(configuration.JWT_SECRET)

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
	}

	vnpay := &paysvc.VNPay{
		TmnCode:    configuration.VNP_TMN_CODE,
		HashSecret: []byte(configuration.VNP_HASH_SECRET),
		BaseURL:    configuration.VNP_URL,
		ReturnURL:  configuration.VNP_RETURN_URL,
	}
	payos := &paysvc.PayOS{
		ClientID:    configuration.PAYOS_CLIENT_ID,
		APIKey:      configuration.PAYOS_API_KEY,
		ChecksumKey: []byte(configuration.PAYOS_CHECKSUM_KEY),
		BaseURL:     configuration.PAYOS_URL,
	}

	cartStore := &cartsvc.Store{DB: db}
	orderService := &ordersvc.Service{DB: db}
	tokens := &authmw.TokenService{JWTSecret: jwtSecret}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpapi.ErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), logger))
			c.SetRequest(req)
			return next(c)
		}
	})

	deps := httpserver.Deps{
		DB:                  db,
		AuthHandler:         &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: prod},
		AdminHandler:        &handlers.AdminHandler{DB: db, JWTSecret: jwtSecret},
		ProductHandler:      &handlers.ProductHandler{DB: db, Producer: prod, ES: esClient, ESIndex: "product"},
		SearchHandler:       &handlers.SearchHandler{ES: esClient, Index: "product"},
		DashboardHandler:    &handlers.DashboardHandler{DB: db},
		CareScheduleHandler: &handlers.CareScheduleHandler{DB: db},
		CartHandler:         &carthdl.CartHandler{Store: cartStore, Producer: prod},
		OrderHandler:        &orderhdl.OrderHandler{Svc: orderService, Producer: prod},
		PaymentHandler: &paymenthdl.PaymentHandler{
			DB:       db,
			VNPay:    vnpay,
			PayOS:    payos,
			Orders:   orderService,
			Producer: prod,
		},
		Tokens: tokens,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
