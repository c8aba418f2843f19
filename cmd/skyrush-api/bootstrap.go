package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/SkyRush/config"
	skyrushapi "github.com/BearBump/SkyRush/internal/api/skyrush_api"
	"github.com/BearBump/SkyRush/internal/broker/kafka"
	"github.com/BearBump/SkyRush/internal/cache/rediscache"
	"github.com/BearBump/SkyRush/internal/integrations/media"
	"github.com/BearBump/SkyRush/internal/integrations/media/cloudinary"
	"github.com/BearBump/SkyRush/internal/integrations/media/fake"
	"github.com/BearBump/SkyRush/internal/integrations/shipstation"
	"github.com/BearBump/SkyRush/internal/logger"
	"github.com/BearBump/SkyRush/internal/services/accounts"
	"github.com/BearBump/SkyRush/internal/services/customers"
	"github.com/BearBump/SkyRush/internal/services/packages"
	"github.com/BearBump/SkyRush/internal/services/rates"
	"github.com/BearBump/SkyRush/internal/session"
	"github.com/BearBump/SkyRush/internal/storage/pgskyrush"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type skyRushAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     skyRushAPIOpts
	handler  *skyrushapi.SkyRushAPI
	packages *packages.Service
	consumer *kafka.Consumer
	closers  []func() error
	log      *zap.Logger

	restoreLog func()
}

func mustBootstrapSkyRushAPI() *skyRushAPIApp {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.SkyRush.Env,
		ServiceName: "skyrush-api",
		File:        cfg.Log.File,
	})
	if err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}
	if cfg.SkyRush.JWTSecret == "" {
		log.Fatal("jwt secret is not configured", zap.String("env", "JWT_SECRET"))
	}

	app := &skyRushAPIApp{log: log}

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second, log)
	app.closers = append(app.closers, func() error { st.Close(); return nil })

	rc := rediscache.New(rediscache.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rl := rc.RateLimiter()
	app.closers = append(app.closers, rc.Close)

	brokers := []string{cfg.Kafka.Addr()}
	producer := kafka.NewProducer(brokers)
	app.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: brokers,
		Topic:   cfg.Kafka.PackageStatusTopicName,
		GroupID: cfg.Kafka.ConsumerGroup,
	})
	app.closers = append(app.closers, producer.Close, app.consumer.Close)

	uploader := mustUploader(cfg.Cloudinary, log)

	sessions := session.NewIssuer(cfg.SkyRush.JWTSecret, time.Duration(cfg.SkyRush.SessionTTLDays)*24*time.Hour)
	ss := shipstation.New(cfg.ShipStation.BaseURL, cfg.ShipStation.APIKey, cfg.ShipStation.APISecret,
		time.Duration(cfg.ShipStation.TimeoutSeconds)*time.Second)

	acc := accounts.New(st, sessions, cfg.SkyRush.AdminEmails)
	app.packages = packages.New(st, uploader, rc,
		time.Duration(cfg.SkyRush.PublicTrackingTTLSeconds)*time.Second,
		producer, cfg.Kafka.PackageStatusTopicName)
	rateSvc := rates.New(ss, rl, rates.Config{
		Carriers:       cfg.ShipStation.Carriers,
		FromPostalCode: cfg.ShipStation.WarehousePostalCode,
		LimitPerMinute: cfg.ShipStation.RateLimitPerMinute,
	})
	custSvc := customers.New(ss, cfg.ShipStation.CustomerPageSize)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app.handler = skyrushapi.New(skyrushapi.Deps{
		Accounts:  acc,
		Packages:  app.packages,
		Rates:     rateSvc,
		Customers: custSvc,
		Sessions:  sessions,
		Logger:    log,
		Registry:  reg,
	}, skyrushapi.Options{
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.SkyRush.AllowedOrigins,
		UploadDir:      cfg.SkyRush.UploadDir,
		MaxUploadBytes: cfg.SkyRush.MaxUploadBytes,
		SwaggerPath:    os.Getenv("swaggerPath"),
	})

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.ctx, app.restoreLog = withProcessLogger(app.ctx, log)
	app.opts = skyRushAPIOpts{
		httpAddr:      cfg.SkyRush.HTTPAddr,
		topic:         cfg.Kafka.PackageStatusTopicName,
		consumerGroup: cfg.Kafka.ConsumerGroup,
		log:           log,
	}
	return app
}

// withProcessLogger makes log the logger for work that does not start from
// an HTTP request, such as the Kafka consumer, both through ctx and as the
// zap global. The returned func restores the previous global.
func withProcessLogger(ctx context.Context, log *zap.Logger) (context.Context, func()) {
	restore := zap.ReplaceGlobals(log)
	return logger.WithContext(ctx, log), restore
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration, log *zap.Logger) *pgskyrush.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgskyrush.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		log.Warn("postgres not ready", zap.Error(err))
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

// mustUploader falls back to the in-memory uploader when Cloudinary
// credentials are absent, which keeps local runs working.
func mustUploader(cfg config.CloudinaryConfig, log *zap.Logger) media.Uploader {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		log.Warn("cloudinary is not configured, using the local fake uploader")
		return fake.New()
	}
	c, err := cloudinary.New(cfg.CloudName, cfg.APIKey, cfg.APISecret, cfg.Folder)
	if err != nil {
		panic(fmt.Sprintf("init cloudinary: %v", err))
	}
	return c
}

func (a *skyRushAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close resource", zap.Error(err))
		}
	}
	_ = a.log.Sync()
	if a.restoreLog != nil {
		a.restoreLog()
	}
}

func (a *skyRushAPIApp) Run() error {
	return runSkyRushAPI(a.ctx, a.opts, a.handler.Routes(), a.consumer, a.packages)
}
