package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/cache"
	"github.com/umalmyha/customer-registry/internal/config"
	"github.com/umalmyha/customer-registry/internal/handlers"
	"github.com/umalmyha/customer-registry/internal/infra"
	"github.com/umalmyha/customer-registry/internal/metrics"
	"github.com/umalmyha/customer-registry/internal/repository"
	"github.com/umalmyha/customer-registry/internal/service"
	"github.com/umalmyha/customer-registry/internal/view"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const defaultConnectTimeout = 5 * time.Second

type stores struct {
	customerRps repository.CustomerRepository
	trx         transactor.Transactor
	close       func()
}

// @title       Customer Registry API
// @version     1.0
// @description Customer records with per-keystroke formatting and live filtered listing
// @host        localhost:3000
// @BasePath    /
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Fatalf("failed to load .env file - %v", err)
	}

	cfg, err := config.Build()
	if err != nil {
		logrus.Fatal(err)
	}

	if err := infra.Logger(cfg.LogCfg); err != nil {
		logrus.Fatal(err)
	}

	st, err := connectStores(cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer st.close()

	redisClient, err := connectRedis(cfg.RedisCfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer redisClient.Close()

	start(cfg, st, redisClient)
}

func connectStores(cfg config.Config) (*stores, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool, err := infra.Postgresql(ctx, cfg.PostgresCfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			customerRps: repository.NewPostgresCustomerRepository(pool),
			trx:         transactor.NewPgxTransactor(pool),
			close:       closePostgres(pool),
		}, nil
	default:
		client, err := infra.Mongodb(ctx, cfg.MongoCfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			customerRps: repository.NewMongoCustomerRepository(client, cfg.MongoCfg.Database),
			trx:         transactor.NewMongoTransactor(client),
			close:       closeMongo(client),
		}, nil
	}
}

func connectRedis(cfg config.RedisCfg) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	return infra.Redis(ctx, cfg)
}

func closePostgres(pool *pgxpool.Pool) func() {
	return pool.Close
}

func closeMongo(client *mongo.Client) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
		defer cancel()

		if err := client.Disconnect(ctx); err != nil {
			logrus.Errorf("failed to disconnect from mongo - %v", err)
		}
	}
}

func start(cfg config.Config, st *stores, redisClient *redis.Client) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	customerCacheRps := cache.NewRedisCustomerCache(redisClient, cfg.RedisCfg.CacheTTL)
	customerSvc := service.NewCustomerService(st.customerRps, customerCacheRps, st.trx, m)
	customersView := view.NewCustomers(m)
	cacheUpdater := cache.NewCustomerCacheUpdater(st.customerRps, customerCacheRps)

	app, err := infra.Router(
		handlers.NewCustomerHTTPHandler(customerSvc, customersView),
		handlers.NewFormatHTTPHandler(),
		reg,
	)
	if err != nil {
		logrus.Fatal(err)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(bgCtx)

	g.Go(func() error {
		if err := customerSvc.Subscribe(gCtx, customersView.Replace); err != nil {
			return fmt.Errorf("customers view stopped receiving changes - %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := cacheUpdater.Listen(); err != nil {
			return fmt.Errorf("customers cache updater stopped - %w", err)
		}
		return nil
	})

	stop := func() {
		cacheUpdater.Stop()
		bgCancel()
		if err := g.Wait(); err != nil {
			logrus.Error(err)
		}
	}

	serve(gCtx, app, cfg.HTTPCfg, stop)
}

// serve runs server until interrupt or until background ctx is done
func serve(bgCtx context.Context, app *echo.Echo, cfg config.HTTPCfg, stop func()) {
	defer stop()

	shutdownCh := make(chan os.Signal, 1)
	errorCh := make(chan error, 1)
	signal.Notify(shutdownCh, os.Interrupt)

	go func() {
		errorCh <- app.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case <-shutdownCh:
		logrus.Info("shutdown signal has been sent, stopping the server...")
		shutdown(app, cfg.ShutdownTimeout)
	case <-bgCtx.Done():
		logrus.Error("background processing failed, stopping the server...")
		shutdown(app, cfg.ShutdownTimeout)
	case err := <-errorCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("shutting down the server, unexpected error occurred - %v", err)
		}
	}
}

func shutdown(app *echo.Echo, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to stop server gracefully - %v", err)
	}
}
