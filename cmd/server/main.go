package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"course_followup_service/internal/app"
	"course_followup_service/internal/domain/course"
	"course_followup_service/internal/domain/notification"
	"course_followup_service/internal/domain/push"
	"course_followup_service/internal/infra/config"
	"course_followup_service/internal/infra/console"
	idb "course_followup_service/internal/infra/database"
	"course_followup_service/internal/infra/httpapi"
	"course_followup_service/internal/infra/line"
	"course_followup_service/internal/infra/logger"
	"course_followup_service/internal/infra/mq"
	iredis "course_followup_service/internal/infra/redis"
	"course_followup_service/internal/infra/scheduler"
	"course_followup_service/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":    cfg.LogLevel,
		"environment":  cfg.Environment,
		"push_gateway": cfg.PushGateway,
		"dispatch_log": cfg.DispatchLogBackend,
	}).Info("Configuration loaded")

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := idb.NewPostgresConnection(connectCtx, cfg.DatabaseURL, idb.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	connectCancel()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established")

	if err := idb.RunMigrations(db, logger.Component("migrate")); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply migrations")
	}

	// Repositories
	courseRepo := idb.NewPostgresCourseRepository(db, logger.Base())
	registrationRepo := idb.NewPostgresRegistrationRepository(db)
	responseRepo := idb.NewPostgresResponseRepository(db)
	formRepo := idb.NewPostgresFormRepository(db)
	traineeDir := idb.NewPostgresTraineeDirectory(db)

	policy := course.DefaultPolicy()
	if cfg.AllowPreCheckpointSend {
		policy = policy.WithPreSend()
	}

	// The Telegram bot is optional; it serves admin commands and can act as the push gateway.
	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		botLogger := logger.Component("telebot")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{"text": c.Text(), "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
				}
				entry.Error("Telebot error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
	}

	gateway := buildGateway(cfg, bot, mainLogger)

	var dispatchLog notification.LogRepository
	switch cfg.DispatchLogBackend {
	case config.DispatchLogPostgres:
		dispatchLog = idb.NewPostgresDispatchLogRepository(db)
	case config.DispatchLogRedis:
		redisLog, err := iredis.NewDispatchLog(iredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger.Component("redis"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		defer redisLog.Close()
		dispatchLog = redisLog
	case config.DispatchLogNone:
		mainLogger.Warn("Dispatch log disabled; overlapping scans may send twice")
	}

	var publisher app.OutcomePublisher
	if cfg.AMQPURL != "" {
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to AMQP broker")
		}
		defer p.Close()
		publisher = p
		mainLogger.WithField("exchange", cfg.AMQPExchange).Info("Outcome events enabled")
	}

	// Services
	dispatcher := app.NewDispatcher(registrationRepo, gateway, dispatchLog, publisher, cfg.LiffID, cfg.DispatchWorkers, logger.Base())
	matcher := app.NewCheckpointMatcher(courseRepo, policy, cfg.Location(), logger.Base())
	notificationService := app.NewNotificationService(matcher, dispatcher, policy, logger.Base())
	adminService := app.NewAdminService(courseRepo, dispatcher, policy, cfg.AdminTelegramID, cfg.Location(), logger.Base())
	enrollmentService := app.NewEnrollmentService(courseRepo, registrationRepo, logger.Base())
	reportService := app.NewReportService(courseRepo, registrationRepo, responseRepo, formRepo, traineeDir, policy, logger.Base())

	notifScheduler := scheduler.NewNotificationScheduler(notificationService, logger.Base(), cfg.Location(), cfg.CronSpecDaily)
	if err := notifScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	handler := httpapi.NewHandler(notificationService, adminService, enrollmentService, reportService, logger.Base())
	router := httpapi.Setup(httpapi.RouterConfig{
		CronSecret:     cfg.CronSecret,
		AdminAPISecret: cfg.AdminAPISecret,
		ReleaseMode:    cfg.IsProduction(),
	}, handler, logger.Base())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bot != nil {
		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(ctx, bot, adminService, enrollmentService, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, telegram.AdminServices{
			Admin:         adminService,
			Notifications: notificationService,
			Enrollment:    enrollmentService,
			Reports:       reportService,
		}, botLogger)
		telegram.RegisterCallbackHandlers(ctx, bot, adminService, botLogger)
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	cancel()
	if bot != nil {
		bot.Stop()
	}
	notifScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	mainLogger.Info("Application shut down gracefully")
}

// buildGateway returns nil when the selected gateway has no credentials.
// Requests that need to send then fail with ErrGatewayNotConfigured.
func buildGateway(cfg *config.AppConfig, bot *telebot.Bot, mainLogger *logrus.Entry) push.Gateway {
	switch cfg.PushGateway {
	case config.GatewayLine:
		if cfg.LineChannelAccessToken == "" {
			mainLogger.Warn("LINE_CHANNEL_ACCESS_TOKEN is not set; notifications are disabled")
			return nil
		}
		return line.NewClient(cfg.LineAPIBaseURL, cfg.LineChannelAccessToken, cfg.LineMaxRecipients, logger.Component("line"))
	case config.GatewayTelegram:
		if bot == nil {
			mainLogger.Warn("TELEGRAM_TOKEN is not set; notifications are disabled")
			return nil
		}
		return telegram.NewGateway(telegram.NewTelebotAdapter(bot), logger.Component("telegram_gateway"))
	default:
		return console.NewGateway(logger.Component("console_gateway"))
	}
}
