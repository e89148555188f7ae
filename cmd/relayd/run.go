package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/arya-analytics/relay"
	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/membership"
	grpct "github.com/arya-analytics/relay/transport/grpc"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func run(config *viper.Viper) error {
	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rpcs, err := parseRPCs(config.GetStringSlice(flagRPC))
	if err != nil {
		return err
	}
	actions, err := parseActions(config.GetStringSlice(flagAction))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := address.Address(config.GetString(flagAddress))
	members, err := membership.NewMemberlist(membership.MemberlistConfig{
		Address:  addr,
		BindAddr: config.GetString(flagMemberlistBind),
		BindPort: config.GetInt(flagMemberlistPort),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	opts := []relay.Option{
		relay.WithLogger(logger),
		relay.WithTransport(grpct.New(grpct.Config{Metrics: true, Logger: logger})),
		relay.WithMembership(members),
		relay.WithMetrics(prometheus.DefaultRegisterer),
		relay.WithPropagationConfig(relay.PropagationConfig{
			GossipInterval: config.GetDuration(flagGossipInterval),
		}),
	}
	r, err := relay.Open(filepath.Clean(config.GetString(flagDir)), addr, opts...)
	if err != nil {
		return errors.CombineErrors(err, members.Close())
	}
	logger.Info("relay started",
		zap.Stringer("addr", addr),
		zap.String("memberlist", members.BindAddress()),
	)

	if metricsAddr := config.GetString(flagMetrics); metricsAddr != "" {
		go serveMetrics(logger, metricsAddr)
	}

	if err := members.Join(ctx, config.GetStringSlice(flagJoin)); err != nil {
		logger.Error("failed to join cluster", zap.Error(err))
	}
	if len(rpcs) > 0 {
		if err := r.RPC.AddOrUpdateRoutes(ctx, rpcs...); err != nil {
			logger.Error("failed to advertise rpcs", zap.Error(err))
		}
	}
	if len(actions) > 0 {
		if err := r.Action.UpdateActions(ctx, actions, nil); err != nil {
			logger.Error("failed to advertise actions", zap.Error(err))
		}
	}

	<-ctx.Done()
	logger.Info("received termination signal")
	err = members.Close()
	logger.Info("cluster left")
	return errors.CombineErrors(err, r.Close())
}

func newLogger(config *viper.Viper) (*zap.Logger, error) {
	var cfg zap.Config
	if config.GetBool(flagPrettyLog) {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if config.GetBool(flagDebug) {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func serveMetrics(logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("failed to serve metrics", zap.Error(err))
	}
}
