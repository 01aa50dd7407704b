package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/auth"
	"targethawk-bot/internal/bot"
	"targethawk-bot/internal/config"
	"targethawk-bot/internal/database"
	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/notify"
	"targethawk-bot/internal/payment"
	"targethawk-bot/internal/repository"
	"targethawk-bot/internal/session"
	"targethawk-bot/internal/signals"
	"targethawk-bot/internal/utils"
	"targethawk-bot/internal/worker"
)

const (
	notifyTimeout   = 10 * time.Second
	reminderEvery   = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.LoadConfig()
	setupLogging(cfg.LogLevel)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg, os.Args[2:]); err != nil {
			log.WithError(err).Fatal("Migration failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Application error")
	}
	log.Info("Shutdown completed")
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if lvl < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func runMigrate(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bot migrate [up|down [n]|status]")
	}
	dsn := cfg.PostgresDSN()
	switch args[0] {
	case "up":
		return database.MigrateUp(dsn)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid steps value %q: %w", args[1], err)
			}
			steps = n
		}
		return database.MigrateDown(dsn, steps)
	case "status":
		return database.MigrateStatus(dsn)
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := database.MigrateUp(cfg.PostgresDSN()); err != nil {
		return err
	}
	db, err := database.ConnectPostgres(cfg.PostgresDSN())
	if err != nil {
		return err
	}
	defer database.Close(db)

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	api, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	sender := notify.NewTelegramSender(api)
	dispatcher := notify.NewDispatcher(sender, notifyTimeout)
	defer drainDispatcher(dispatcher)

	users := repository.NewUserRepository(db)
	ledgerSvc := ledger.New(users, dispatcher)
	registry := signals.NewRegistry(repository.NewSignalRepository(db))
	sessions := session.NewMachine(session.NewRedisStore(rdb, cfg.SessionTTL))

	admins := auth.NewPolicy(cfg.AdminIDs)
	if len(admins.Admins()) == 0 {
		log.Warn("ADMIN_USER_IDS is empty, admin commands are disabled")
	}

	var opts []bot.Option
	if cfg.PaymentsEnabled() {
		plans, err := payment.Plans(cfg.ProPrice, cfg.VIPPrice)
		if err != nil {
			return err
		}
		allowed, err := utils.ParseCIDRs(cfg.AllowedYooIp)
		if err != nil {
			return err
		}
		opts = append(opts, bot.WithPayments(payment.NewClient(cfg.YookassaShopID, cfg.YookassaKey), plans))

		handler := payment.NewHandler(ledgerSvc, repository.NewPaymentRepository(db), allowed)
		srv := &http.Server{
			Addr:              cfg.WebhookAddr,
			Handler:           payment.NewRouter(handler),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go serveWebhook(srv)
		defer shutdownWebhook(srv)
	} else {
		log.Info("YooKassa is not configured, payments are disabled")
	}

	checker := worker.NewChecker(users, rdb, sender, reminderEvery)
	go checker.Start(ctx)

	return bot.New(api, cfg, ledgerSvc, registry, sessions, admins, opts...).Start(ctx)
}

func drainDispatcher(d *notify.Dispatcher) {
	d.Wait()
	if n := d.Failed(); n > 0 {
		log.WithField("batches", n).Warn("Some notices were never delivered")
	}
}

func serveWebhook(srv *http.Server) {
	log.WithField("addr", srv.Addr).Info("Payment webhook listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("Payment webhook server failed")
	}
}

func shutdownWebhook(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Payment webhook shutdown failed")
	}
}
