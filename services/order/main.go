package main

import (
	"context"
	"embed"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"

	"github.com/appetiteclub/tableside/services/order/internal/billing"
	"github.com/appetiteclub/tableside/services/order/internal/kitchen"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
	"github.com/appetiteclub/tableside/services/order/internal/tables"
)

const (
	appNamespace = "ORDER"
	appName      = "tableside"
	appVersion   = "0.1.0"
)

//go:embed seed.json
var seedFS embed.FS

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	seedCtx, cancelSeeds := context.WithCancel(ctx)
	defer cancelSeeds()

	store, err := newRepos(ctx, config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot start storage: %v", appName, appVersion, err)
	}

	brk, err := newBroker(ctx, config, logger)
	if err != nil {
		_ = store.stop(context.Background())
		log.Fatalf("%s(%s) cannot connect to NATS: %v", appName, appVersion, err)
	}

	catalog, err := newCatalog(config, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot load menu: %v", appName, appVersion, err)
	}

	calc, err := newCalculator(config)
	if err != nil {
		log.Fatalf("%s(%s) invalid billing config: %v", appName, appVersion, err)
	}

	thresholds, err := newThresholds(config)
	if err != nil {
		log.Fatalf("%s(%s) invalid kitchen config: %v", appName, appVersion, err)
	}

	numbers := sequence.NewGenerator(store.counters, logger)
	coordinator := tables.NewCoordinator(store.tables, store.sessions, numbers, brk.events, logger)

	orders := order.NewService(order.ServiceDeps{
		Repo:       store.orders,
		Sessions:   coordinator,
		Catalog:    catalog,
		Numbers:    numbers,
		Publisher:  brk.events,
		Logger:     logger,
		CASRetries: config.GetIntOrDef("order.cas.retries", 3),
	})

	dispatcher := kitchen.NewDispatcher(store.tickets, orders, brk.events, thresholds, logger)
	orders.OnStatusChange(dispatcher)

	biller := billing.NewBiller(billing.BillerDeps{
		Repo:        store.bills,
		Orders:      orders,
		Coordinator: coordinator,
		Numbers:     numbers,
		Calculator:  calc,
		Publisher:   brk.bills,
		Logger:      logger,
	})

	printer, templates := kitchen.NewPrinter(logger)
	board := kitchen.NewBoardServer(dispatcher, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles := []any{
		apt.LifecycleHooks{OnStop: store.stop},
		templates,
	}
	lifecycles = append(lifecycles, brk.hooks...)

	// Memory storage starts empty, so its tables are always seeded.
	if config.GetBoolOrFalse("seeding.tables") || store.base == nil {
		logger.Info("table seeding enabled")
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStart: tables.SeedingFunc(seedCtx, store.tables, store.tracker, seedFS, logger),
			OnStop: func(context.Context) error {
				cancelSeeds()
				return nil
			},
		})
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port",
			order.NewHandler(orders, logger),
			tables.NewHandler(coordinator, logger),
			kitchen.NewHandler(dispatcher, printer, logger),
			billing.NewHandler(biller, logger),
		),
		apt.WithGRPCServerModules("grpc.port", board),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName, nil, store.ready),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = store.stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
