package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/SkyRush/internal/broker/messages"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type skyRushAPIOpts struct {
	httpAddr      string
	topic         string
	consumerGroup string

	// consumerBackoff is the pause before the consumer restarts; 0 means 1s.
	consumerBackoff time.Duration

	log *zap.Logger

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type statusApplier interface {
	ApplyStatusChanged(ctx context.Context, msg messages.PackageStatusChanged) error
}

// runSkyRushAPI serves handler until ctx is cancelled. A nil consumer skips
// the status-changed subscription.
func runSkyRushAPI(ctx context.Context, opts skyRushAPIOpts, handler http.Handler, consumer kafkaConsumer, svc statusApplier) error {
	log := opts.log
	if log == nil {
		log = zap.NewNop()
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, handler, log)
	}()

	if consumer != nil {
		go runStatusConsumer(ctx, opts, consumer, svc, log)
	}

	select {
	case <-ctx.Done():
		<-httpErr
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

// runStatusConsumer restarts Consume after a failure. The failed message
// was not committed, so it is fetched again on the next round.
func runStatusConsumer(ctx context.Context, opts skyRushAPIOpts, consumer kafkaConsumer, svc statusApplier, log *zap.Logger) {
	log.Info("kafka consumer started", zap.String("topic", opts.topic), zap.String("group", opts.consumerGroup))
	backoff := opts.consumerBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	for {
		err := consumer.Consume(ctx, statusChangedHandler(ctx, svc, log))
		if ctx.Err() != nil {
			return
		}
		log.Error("kafka consumer failed, restarting", zap.Error(err), zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// statusChangedHandler skips messages that can never be applied so one bad
// message cannot wedge the partition.
func statusChangedHandler(ctx context.Context, svc statusApplier, log *zap.Logger) func(key, value []byte) error {
	return func(key, value []byte) error {
		var m messages.PackageStatusChanged
		if err := json.Unmarshal(value, &m); err != nil {
			log.Warn("skip malformed status message", zap.ByteString("key", key), zap.Error(err))
			return nil
		}
		if m.TrackingNumber == "" {
			log.Warn("skip status message without tracking number", zap.ByteString("key", key))
			return nil
		}
		return svc.ApplyStatusChanged(ctx, m)
	}
}

func runHTTPServer(ctx context.Context, lis net.Listener, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
