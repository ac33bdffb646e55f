/*
Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	redoc "github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redhatinsights/platform-go-middlewares/v2/identity"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studiooh/proposal-export-service/assets"
	"github.com/studiooh/proposal-export-service/config"
	"github.com/studiooh/proposal-export-service/db"
	"github.com/studiooh/proposal-export-service/exports"
	"github.com/studiooh/proposal-export-service/kafka"
	"github.com/studiooh/proposal-export-service/logger"
	"github.com/studiooh/proposal-export-service/metrics"
	emiddleware "github.com/studiooh/proposal-export-service/middleware"
	"github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/pipeline"
	"github.com/studiooh/proposal-export-service/render"
	es3 "github.com/studiooh/proposal-export-service/s3"
)

const (
	apiPrefix      = "/api/proposal/v1"
	internalPrefix = "/app/proposal/v1"

	shutdownTimeout = 30 * time.Second
)

func createPublicServer(cfg *config.ProposalConfig, external *exports.Export, verifier emiddleware.Verifier, log *zap.SugaredLogger) *http.Server {
	router := chi.NewRouter()

	router.Use(
		request_id.RequestID,
		emiddleware.JSONContentType,
		logger.ResponseLogger,
		setupDocsMiddleware,
		metrics.PrometheusMiddleware,
		middleware.Recoverer,
	)

	router.Get("/", statusOK)
	router.Get(apiPrefix+"/openapi.json", serveOpenAPISpec(cfg))

	router.Route(apiPrefix, func(r chi.Router) {
		if cfg.Debug {
			r.Use(emiddleware.InjectDebugUserIdentity(log))
		}
		r.Use(
			identity.EnforceIdentity,
			emiddleware.EnforceAuthentication(verifier),
		)

		r.Get("/ping", ping)
		external.PublicRouter(r)
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.PublicPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

func createPrivateServer(cfg *config.ProposalConfig, internal *exports.Internal, verifier emiddleware.Verifier) *http.Server {
	router := chi.NewRouter()

	router.Use(
		request_id.RequestID,
		emiddleware.JSONContentType,
		logger.ResponseLogger,
		metrics.PrometheusMiddleware,
		middleware.Recoverer,
	)

	router.Get("/", statusOK)

	router.Route(internalPrefix, func(r chi.Router) {
		r.Use(emiddleware.EnforcePrivateAuth(verifier, cfg.Psks))
		r.Get("/ping", ping)
		internal.InternalRouter(r)
	})

	// synchronous renders of large decks take a while
	writeTimeout := 5 * time.Minute
	if cfg.ExportConfig.Timeout > 0 {
		writeTimeout = cfg.ExportConfig.Timeout + 10*time.Second
	}
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.PrivatePort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
	}
}

func createMetricsServer(cfg *config.ProposalConfig) *http.Server {
	mr := chi.NewRouter()
	mr.Get("/", statusOK)
	mr.Get("/readyz", statusOK)  // for readiness probe
	mr.Get("/healthz", statusOK) // for liveness probe
	mr.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mr,
	}
}

func setupDocsMiddleware(handler http.Handler) http.Handler {
	opt := redoc.RedocOpts{
		Path:    apiPrefix + "/docs",
		SpecURL: apiPrefix + "/openapi.json",
		Title:   "Proposal Export Service",
	}
	return redoc.Redoc(opt, handler)
}

func ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "pong")
}

func statusOK(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func serveOpenAPISpec(cfg *config.ProposalConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, cfg.OpenAPIFilePath)
	}
}

// newPublisher returns a kafka producer when brokers are configured, and a
// publisher that drops events otherwise. stop flushes and closes it.
func newPublisher(cfg *config.ProposalConfig, log *zap.SugaredLogger) (kafka.Publisher, func(), error) {
	if !kafka.Enabled(cfg) {
		log.Info("no kafka brokers configured, proposal events are dropped")
		return kafka.NoopPublisher{Log: log}, func() {}, nil
	}

	producer, err := kafka.NewProducer(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	go producer.StartProducer()

	stop := func() {
		close(producer.Messages)
		if pending := producer.Flush(1500); pending > 0 {
			log.Warnw("kafka producer closed with undelivered events", "pending", pending)
		}
		producer.Close()
	}
	return producer, stop, nil
}

func startApiServer(ctx context.Context, cfg *config.ProposalConfig, log *zap.SugaredLogger) error {
	log.Infow("configuration values",
		"hostname", cfg.Hostname,
		"publicport", cfg.PublicPort,
		"privateport", cfg.PrivatePort,
		"metricsport", cfg.MetricsPort,
		"loglevel", cfg.LogLevel,
		"debug", cfg.Debug,
		"openapifilepath", cfg.OpenAPIFilePath,
		"exporttimeout", cfg.ExportConfig.Timeout,
	)

	var verifier emiddleware.Verifier
	if cfg.OIDCConfig.IssuerURL != "" {
		v, err := emiddleware.NewOIDCVerifier(ctx, cfg.OIDCConfig.IssuerURL, cfg.OIDCConfig.ClientID, 0)
		if err != nil {
			log.Errorw("failed to set up OIDC verification", "error", err)
			return err
		}
		verifier = v
	}

	gdb, err := db.OpenDB(*cfg)
	if err != nil {
		log.Errorw("failed to open database", "error", err)
		return err
	}
	proposalDB := &models.ProposalDB{DB: gdb}

	storage := es3.NewStorage(cfg, log)

	fetcher, err := assets.NewFetcherFromConfig(ctx, *cfg, storage, log)
	if err != nil {
		log.Errorw("failed to create asset fetcher", "error", err)
		return err
	}

	p := pipeline.New(
		pipeline.NewCollector(proposalDB, log),
		render.NewRegistry(fetcher, log),
		cfg.ExportConfig.Timeout,
		log,
	)

	publisher, stopPublisher, err := newPublisher(cfg, log)
	if err != nil {
		log.Errorw("failed to create kafka publisher", "error", err)
		return err
	}

	external := exports.New(proposalDB, p, storage, publisher, cfg.ExportConfig.ExpiryDays, log)
	internal := exports.NewInternal(p, log)

	wsrv := createPublicServer(cfg, external, verifier, log)
	psrv := createPrivateServer(cfg, internal, verifier)
	msrv := createMetricsServer(cfg)

	servers := []namedServer{{"public", wsrv}, {"private", psrv}, {"metrics", msrv}}
	serveErr := serve(ctx, servers, log)

	log.Info("waiting for running exports")
	external.Wait()

	stopPublisher()

	log.Info("everything has shut down, goodbye")
	_ = log.Sync()
	return serveErr
}

type namedServer struct {
	name string
	srv  *http.Server
}

// serve runs every server until ctx is cancelled or one of them fails, then
// shuts them all down.
func serve(ctx context.Context, servers []namedServer, log *zap.SugaredLogger) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		g.Go(func() error {
			log.Infow("server listening", "server", s.name, "addr", s.srv.Addr)
			if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("%s server: %w", s.name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, s := range servers {
			if err := s.srv.Shutdown(shutdownCtx); err != nil {
				log.Errorw("server shutdown failed", "server", s.name, "error", err)
				continue
			}
			log.Infow("server stopped", "server", s.name)
		}
		return nil
	})

	return g.Wait()
}
