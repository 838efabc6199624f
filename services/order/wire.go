package main

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/seed"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/billing"
	"github.com/appetiteclub/tableside/services/order/internal/kitchen"
	"github.com/appetiteclub/tableside/services/order/internal/menu"
	"github.com/appetiteclub/tableside/services/order/internal/mongo"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/appetiteclub/tableside/services/order/internal/sequence"
	"github.com/appetiteclub/tableside/services/order/internal/tables"
)

const (
	driverMongo  = "mongo"
	driverMemory = "memory"
)

// repos is the storage backing every component, in memory or in Mongo.
type repos struct {
	tables   tables.TableRepo
	sessions tables.SessionRepo
	orders   order.Repo
	tickets  kitchen.TicketRepo
	bills    billing.Repo
	counters sequence.Store
	tracker  seed.Tracker
	base     *mongo.BaseRepo
}

func newRepos(ctx context.Context, config *apt.Config, logger apt.Logger) (*repos, error) {
	driver := config.GetStringOrDef("db.driver", driverMongo)
	switch driver {
	case driverMemory:
		logger.Info("using in-memory storage")
		return &repos{
			tables:   tables.NewFakeTableRepo(),
			sessions: tables.NewFakeSessionRepo(),
			orders:   order.NewFakeRepo(),
			tickets:  kitchen.NewFakeTicketRepo(),
			bills:    billing.NewFakeRepo(),
			counters: sequence.NewMemoryStore(),
			tracker:  tables.NewFakeSeedTracker(),
		}, nil

	case driverMongo:
		base := mongo.NewBaseRepo(config, logger)
		if err := base.Start(ctx); err != nil {
			return nil, err
		}
		db := base.GetDatabase()
		return &repos{
			tables:   mongo.NewTableRepo(db),
			sessions: mongo.NewSessionRepo(db),
			orders:   mongo.NewOrderRepo(db),
			tickets:  mongo.NewTicketRepo(db),
			bills:    mongo.NewBillRepo(db),
			counters: mongo.NewCounterRepo(db),
			tracker:  seed.NewMongoTracker(db),
			base:     base,
		}, nil

	default:
		return nil, fmt.Errorf("unknown db.driver %q", driver)
	}
}

func (r *repos) stop(ctx context.Context) error {
	if r.base == nil {
		return nil
	}
	return r.base.Stop(ctx)
}

func (r *repos) ready(ctx context.Context) error {
	if r.base == nil {
		return nil
	}
	return r.base.Ping(ctx)
}

// broker holds the event transports. Both publishers may be nil, in which
// case events are dropped.
type broker struct {
	events events.Publisher
	bills  events.Publisher
	hooks  []any
}

func newBroker(ctx context.Context, config *apt.Config, logger apt.Logger) (*broker, error) {
	b := &broker{}
	if !config.GetBoolOrTrue("nats.enabled") {
		logger.Info("nats disabled, domain events are dropped")
		return b, nil
	}

	url := config.GetStringOrDef("nats.url", "nats://localhost:4222")
	pub, err := pkg.NewNATSPublisher(url, appName, logger)
	if err != nil {
		return nil, err
	}
	b.events = pub
	b.bills = pub
	b.hooks = append(b.hooks, apt.LifecycleHooks{OnStop: func(context.Context) error { return pub.Close() }})

	if !config.GetBoolOrFalse("nats.stream.enabled") {
		return b, nil
	}

	stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
		URL:          url,
		StreamName:   config.GetStringOrDef("nats.stream.name", "BILLS"),
		Topic:        event.BillsTopic,
		ConsumerName: config.GetStringOrDef("nats.stream.consumer", "bills-replay"),
		MaxAge:       config.GetDurationOrDef("nats.stream.max_age", 30*24*time.Hour),
		Logger:       logger,
	})
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	b.bills = stream
	b.hooks = append(b.hooks, apt.LifecycleHooks{OnStop: func(context.Context) error { return stream.Close() }})
	return b, nil
}

func newCatalog(config *apt.Config, logger apt.Logger) (menu.Catalog, error) {
	url := config.GetStringOrDef("services.menu.url", "")
	if url == "" {
		logger.Info("no menu service configured, serving the seeded menu")
		return menu.LoadStaticCatalog(seedFS)
	}
	ttl := config.GetDurationOrDef("menu.cache.ttl", 5*time.Minute)
	catalog := menu.NewClientCatalog(apt.NewServiceClient(url), ttl, logger)
	if err := catalog.SetLanguage(config.GetStringOrDef("menu.language", "en")); err != nil {
		return nil, err
	}
	return catalog, nil
}

func newCalculator(config *apt.Config) (billing.Calculator, error) {
	calc := billing.NewCalculator()

	rate, err := decimal.NewFromString(config.GetStringOrDef("billing.ac_rate", billing.DefaultACRate.String()))
	if err != nil {
		return calc, fmt.Errorf("invalid billing.ac_rate: %w", err)
	}
	tolerance, err := decimal.NewFromString(config.GetStringOrDef("billing.split_tolerance", billing.DefaultSplitTolerance.String()))
	if err != nil {
		return calc, fmt.Errorf("invalid billing.split_tolerance: %w", err)
	}
	if rate.IsNegative() || tolerance.IsNegative() {
		return calc, fmt.Errorf("billing rates must not be negative")
	}

	calc.ACRate = rate
	calc.SplitTolerance = tolerance
	return calc, nil
}

func newThresholds(config *apt.Config) (kitchen.Thresholds, error) {
	th := kitchen.Thresholds{
		WarningAfter:  config.GetDurationOrDef("kitchen.urgency.warning_after", kitchen.DefaultThresholds.WarningAfter),
		CriticalAfter: config.GetDurationOrDef("kitchen.urgency.critical_after", kitchen.DefaultThresholds.CriticalAfter),
	}
	if !th.Valid() {
		return th, fmt.Errorf("invalid kitchen urgency thresholds: warning %s, critical %s", th.WarningAfter, th.CriticalAfter)
	}
	return th, nil
}
