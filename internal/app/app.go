package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/niksmo/shop/config"
	"github.com/niksmo/shop/internal/adapter"
	"github.com/niksmo/shop/internal/adapter/cache"
	"github.com/niksmo/shop/internal/adapter/httphandler"
	"github.com/niksmo/shop/internal/adapter/kafka"
	"github.com/niksmo/shop/internal/adapter/metrics"
	"github.com/niksmo/shop/internal/adapter/storage"
	"github.com/niksmo/shop/internal/core/port"
	"github.com/niksmo/shop/internal/core/service"
	"github.com/niksmo/shop/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/sr"
)

type repositories struct {
	products storage.ProductsRepository
	orders   storage.OrdersRepository
	users    storage.UsersRepository
}

type App struct {
	ctx          context.Context
	cfg          config.Config
	sqldb        storage.SQLDB
	repositories repositories
	exportEvents *kafka.ExportEventsProducer
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	service      service.Service
	exports      httphandler.ExportsHandler
	httpServer   httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initMetrics()
	app.initStorage()
	app.initExportEvents()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)
}

func (app *App) initStorage() {
	const op = "App.initStorage"

	sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}

	app.sqldb = sqldb
	app.repositories = repositories{
		products: storage.NewProductsRepository(sqldb),
		orders:   storage.NewOrdersRepository(sqldb),
		users:    storage.NewUsersRepository(sqldb),
	}
}

func (app *App) initExportEvents() {
	const op = "App.initExportEvents"

	brokerCfg := app.cfg.Broker
	if !brokerCfg.Enabled {
		slog.Info("export events are disabled")
		return
	}

	tlsCfg, err := adapter.MakeTLSConfig(
		brokerCfg.TLS.CA, brokerCfg.TLS.Cert, brokerCfg.TLS.Key,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	srOpts := []sr.ClientOpt{sr.URLs(brokerCfg.SchemaRegistryURLs...)}
	if tlsCfg != nil {
		srOpts = append(srOpts, sr.DialTLSConfig(tlsCfg))
	}
	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	topic := brokerCfg.Topics.ExportEvents
	exportEventSerde, err := schema.NewSerdeExportEventV1(
		app.ctx,
		schema.SubjectOpt(topic+"-value"),
		schema.SchemaIdentifierOpt(schema.NewRegistryIdentifier(srClient)),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	producer, err := kafka.NewExportEventsProducer(
		kafka.ProducerClientOpt(app.ctx, brokerCfg.SeedBrokers, topic, tlsCfg),
		kafka.ProducerEncoderOpt(exportEventSerde),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.exportEvents = &producer
}

func (app *App) initCoreService() {
	var exportEvents port.ExportEventsProducer
	if app.exportEvents != nil {
		exportEvents = app.exportEvents
	}

	app.service = service.New(
		app.repositories.products,
		app.repositories.orders,
		app.repositories.users,
		cache.NewMemoryCache(),
		exportEvents,
		app.cfg.Export.CacheTTL,
	)
}

func (app *App) initInboundAdapters() {
	mux := http.NewServeMux()

	app.exports = httphandler.NewExportsHandler(
		app.service,
		app.service,
		app.service,
		app.metrics,
		httphandler.NewAuthenticator(app.cfg.Auth.JWTSecret),
		app.cfg.LoginURL,
	)
	httphandler.RegisterExports(mux, app.exports)
	httphandler.RegisterProducts(mux, app.service)
	mux.Handle("GET /metrics", metrics.Handler(app.registry))

	serverCfg := httphandler.ServerConfig{
		Addr:              app.cfg.HTTPServerAddr,
		ReadHeaderTimeout: app.cfg.HTTPServer.ReadHeaderTimeout,
		IdleTimeout:       app.cfg.HTTPServer.IdleTimeout,
		HandlerTimeout:    app.cfg.HTTPServer.HandlerTimeout,
	}
	app.httpServer = httphandler.NewHTTPServer(serverCfg, app.metrics, mux)
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.exports.Drain(ctx)
	if app.exportEvents != nil {
		app.exportEvents.Close()
	}
	app.sqldb.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
