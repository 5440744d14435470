package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	analyzer "github.com/hanpama/querycost/internal/analyzer"
	config "github.com/hanpama/querycost/internal/config"
	eventbus "github.com/hanpama/querycost/internal/eventbus"
	grpcrt "github.com/hanpama/querycost/internal/grpcrt"
	language "github.com/hanpama/querycost/internal/language"
	logging "github.com/hanpama/querycost/internal/logging"
	metrics "github.com/hanpama/querycost/internal/metrics"
	otel "github.com/hanpama/querycost/internal/otel"
	protoreg "github.com/hanpama/querycost/internal/protoreg"
	schema "github.com/hanpama/querycost/internal/schema"
	server "github.com/hanpama/querycost/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway and the gRPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logging.New(cmd.ErrOrStderr(), conf.Log.Level, conf.Log.Format)
			a, err := newApp(ctx, conf, log)
			if err != nil {
				return err
			}
			return a.run(ctx)
		},
	}
}

// app wires the servers of one serve invocation.
type app struct {
	conf     *config.Config
	log      *logrus.Logger
	analyzer *analyzer.Service
	metrics  *metrics.Metrics
	http     *http.Server
	grpc     *grpcrt.Server
}

func newApp(ctx context.Context, conf *config.Config, log *logrus.Logger) (*app, error) {
	sch, err := schema.LoadFiles(ctx, conf.Schema.CostDirective, conf.Schema.Paths...)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	rule, err := conf.Rule()
	if err != nil {
		return nil, err
	}
	svc, err := analyzer.New(sch, rule, analyzer.WithLogger(log))
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	sopts := []server.Option{
		server.WithTimeout(conf.Server.Timeout),
		server.WithMaxBodyBytes(conf.Server.MaxBodyBytes),
		server.WithMetrics(m.Handler()),
		server.WithLogger(log),
	}
	if conf.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(conf.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(conf.Server.CORSOrigins...))
	}
	if conf.Server.Upstream != "" {
		u, err := url.Parse(conf.Server.Upstream)
		if err != nil {
			return nil, fmt.Errorf("upstream: %w", err)
		}
		sopts = append(sopts, server.WithUpstream(u))
	}
	h, err := server.New(svc, sopts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}

	a := &app{
		conf:     conf,
		log:      log,
		analyzer: svc,
		metrics:  m,
		http:     &http.Server{Addr: conf.Server.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second},
	}
	if conf.Server.GRPCAddr != "" {
		reg, err := protoreg.Build()
		if err != nil {
			return nil, fmt.Errorf("protoreg build: %w", err)
		}
		a.grpc = grpcrt.NewServer(reg, svc, grpcrt.WithLogger(log))
	}
	return a, nil
}

// run serves until ctx is done or a server fails.
func (a *app) run(ctx context.Context) error {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	defer a.metrics.Register()()

	shutdownOtel, err := otel.Setup(ctx, a.conf.OTel.Endpoint, a.conf.OTel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			a.log.WithError(err).Warn("otel shutdown")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	lis, err := net.Listen("tcp", a.http.Addr)
	if err != nil {
		return err
	}
	a.log.WithField("addr", lis.Addr().String()).Info("http listening")
	g.Go(func() error {
		if err := a.http.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.http.Shutdown(sctx)
	})

	if a.grpc != nil {
		glis, err := net.Listen("tcp", a.conf.Server.GRPCAddr)
		if err != nil {
			_ = lis.Close()
			return err
		}
		gs := a.grpc.NewGRPCServer()
		a.log.WithField("addr", glis.Addr().String()).Info("grpc listening")
		g.Go(func() error { return gs.Serve(glis) })
		g.Go(func() error {
			<-gctx.Done()
			a.grpc.Shutdown()
			stopGRPC(gs)
			return nil
		})
	}

	if a.conf.Server.Watch {
		w := schema.NewWatcher(a.conf.Schema.CostDirective, a.conf.Schema.Paths...)
		w.OnReload = a.reload
		w.OnError = func(err error) { a.log.WithError(err).Warn("schema reload failed") }
		g.Go(func() error { return w.Run(gctx) })
	}

	return g.Wait()
}

func (a *app) reload(s *language.Schema) {
	a.analyzer.SetSchema(s)
	if a.grpc != nil {
		a.grpc.UpdateHealth()
	}
}

// stopGRPC drains in-flight calls, giving up after shutdownTimeout.
func stopGRPC(gs *grpc.Server) {
	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		gs.Stop()
	}
}
