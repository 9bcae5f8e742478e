package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking-engine/internal/config"
	"github.com/iliyamo/event-booking-engine/internal/database"
	"github.com/iliyamo/event-booking-engine/internal/handler"
	"github.com/iliyamo/event-booking-engine/internal/notify"
	"github.com/iliyamo/event-booking-engine/internal/queue"
	"github.com/iliyamo/event-booking-engine/internal/ranking"
	"github.com/iliyamo/event-booking-engine/internal/repository"
	"github.com/iliyamo/event-booking-engine/internal/repository/memory"
	"github.com/iliyamo/event-booking-engine/internal/router"
	"github.com/iliyamo/event-booking-engine/internal/scheduler"
	"github.com/iliyamo/event-booking-engine/internal/service"
	"github.com/iliyamo/event-booking-engine/internal/utils"
)

// store is everything the services need from persistence.  Both the SQL
// repositories and the memory store satisfy it.
type store interface {
	service.EventCatalog
	service.InventoryStore
	service.BookingLedger
	service.AccountLedger
	service.Inbox
}

func main() {
	migrate := flag.Bool("migrate", true, "apply database migrations on startup")
	consume := flag.Bool("consume", false, "run the e-mail queue consumer in this process")
	issue := flag.String("issue-token", "", "print an access token for user:ROLE and exit")
	flag.Parse()

	cfg := config.Load()

	if *issue != "" {
		if err := issueToken(cfg, *issue); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, db, err := openStore(ctx, cfg, *migrate)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	var mailer notify.Mailer
	if cfg.Broker.Enabled {
		mailer = queue.NewPublisher(cfg.Broker.URL)
		if *consume {
			go func() {
				c := queue.Consumer{URL: cfg.Broker.URL, Dir: cfg.Broker.LogDir}
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("rabbitmq: consumer stopped: %v", err)
				}
			}()
		}
	}
	dispatcher := notify.New(st, mailer, notify.WithAdmin(cfg.AdminUsername))

	bookings := service.NewBookingService(service.BookingDeps{
		Events:    st,
		Inventory: st,
		Ledger:    st,
		Accounts:  st,
		Notifier:  dispatcher,
	})
	catalog := service.NewCatalogService(st)
	rank := ranking.New(st, cfg.Location, ranking.WithBoard(ranking.NewBoard(rdb, cfg.Scheduler.LeaderboardTTL)))
	credits := service.NewCreditService(st, rank, dispatcher)
	sched := scheduler.New(credits, bookings, cfg.Location,
		scheduler.WithLock(scheduler.NewRunLock(rdb, cfg.Scheduler.LockTTL)))
	if cfg.Scheduler.Enabled {
		sched.Start(ctx)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.Register(e, router.Handlers{
		Health:        handler.Health(healthChecks(db, rdb)...),
		Events:        handler.NewEventHandler(catalog, bookings),
		Bookings:      handler.NewBookingHandler(bookings),
		Credits:       handler.NewCreditHandler(credits, rank, sched),
		Notifications: handler.NewNotificationHandler(st),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	dispatcher.Wait()
}

// openStore selects the persistence backend.  The returned *sqlx.DB is
// nil for the memory store.
func openStore(ctx context.Context, cfg config.Config, migrate bool) (store, *sqlx.DB, error) {
	layout := cfg.SeatMap.Layout()
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Printf("store: using in-memory store, data is lost on exit")
		return memory.New(layout), nil, nil
	case config.DriverSQLite:
		db, err = database.OpenSQLite(cfg.SQLitePath)
	default:
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return repository.NewStore(db, layout), db, nil
}

func healthChecks(db *sqlx.DB, rdb *redis.Client) []handler.Check {
	var checks []handler.Check
	if db != nil {
		checks = append(checks, handler.Check{Name: "database", Ping: db.PingContext})
	}
	if rdb != nil {
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}

// issueToken prints a signed access token for arg "user:ROLE" or
// "user:ROLE:email".
func issueToken(cfg config.Config, arg string) error {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return fmt.Errorf("-issue-token wants user:ROLE, got %q", arg)
	}
	role := strings.ToUpper(parts[1])
	if role != utils.RoleAttendee && role != utils.RoleAdmin {
		return fmt.Errorf("unknown role %q", parts[1])
	}
	email := ""
	if len(parts) == 3 {
		email = parts[2]
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, parts[0], role, email, time.Duration(cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	return nil
}
