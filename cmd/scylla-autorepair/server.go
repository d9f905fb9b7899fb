// Copyright (C) 2017 ScyllaDB

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/scylladb/autorepair/pkg/config"
	"github.com/scylladb/autorepair/pkg/nodeclient"
	"github.com/scylladb/autorepair/pkg/restapi"
	"github.com/scylladb/autorepair/pkg/service/autorepair"
	"github.com/scylladb/autorepair/pkg/service/turncoord"
	"github.com/scylladb/go-log"
	"github.com/scylladb/gocqlx/v2"
	"golang.org/x/sync/errgroup"
)

type server struct {
	config  *config.Config
	session gocqlx.Session
	logger  log.Logger

	client    *nodeclient.Client
	coordSvc  *turncoord.Service
	repairSvc *autorepair.Service

	httpServer *http.Server
	promServer *http.Server
	errCh      chan error
}

func newServer(c *config.Config, logger log.Logger) (*server, error) {
	session, err := gocqlx.WrapSession(gocqlClusterConfig(c).CreateSession())
	if err != nil {
		return nil, errors.Wrap(err, "database")
	}

	s := &server{
		config:  c,
		session: session,
		logger:  logger,

		errCh: make(chan error, 2),
	}

	if err := s.initServices(); err != nil {
		return nil, err
	}
	s.initHTTPServers()

	return s, nil
}

func (s *server) initServices() error {
	var err error

	s.client, err = nodeclient.NewClient(s.config.Node, s.logger.Named("node"))
	if err != nil {
		return errors.Wrap(err, "node client")
	}

	// The coordinator reads options through the repair service so that
	// configuration changes apply to both at once. The function is not
	// called before the repair service exists.
	options := func(t autorepair.Type) autorepair.TypeOptions {
		return s.repairSvc.Options(t)
	}
	s.coordSvc, err = turncoord.NewService(s.session, s.client, options, s.logger.Named("turncoord"))
	if err != nil {
		return errors.Wrap(err, "turn coordination service")
	}

	s.repairSvc, err = autorepair.NewService(
		s.config.Repair,
		autorepair.NewClusterInfo(s.client),
		s.coordSvc,
		autorepair.NewSplitter(s.client),
		autorepair.NewDispatcher(s.client, s.config.Repair.PollInterval, s.logger.Named("dispatch")),
		s.logger.Named("repair"),
	)
	if err != nil {
		return errors.Wrap(err, "repair service")
	}

	return nil
}

func (s *server) initHTTPServers() {
	h := restapi.New(restapi.Services{
		Repair:      s.repairSvc,
		Coordinator: s.coordSvc,
	}, s.logger.Named("restapi"))

	s.httpServer = &http.Server{Addr: s.config.HTTP, Handler: h}
	if s.config.Prometheus != "" {
		s.promServer = &http.Server{Addr: s.config.Prometheus, Handler: restapi.NewPrometheus()}
	}
}

func (s *server) startServices(ctx context.Context) error {
	return errors.Wrap(s.repairSvc.Setup(ctx), "repair service")
}

func (s *server) startHTTPServers(ctx context.Context) {
	s.logger.Info(ctx, "Starting HTTP", "address", s.httpServer.Addr)
	go func() {
		s.errCh <- s.httpServer.ListenAndServe()
	}()

	if s.promServer != nil {
		s.logger.Info(ctx, "Starting Prometheus", "address", s.promServer.Addr)
		go func() {
			s.errCh <- s.promServer.ListenAndServe()
		}()
	}
}

func (s *server) shutdownServers(ctx context.Context, timeout time.Duration) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		s.logger.Info(ctx, "Closing HTTP...")
		return s.httpServer.Shutdown(tctx)
	})
	if s.promServer != nil {
		g.Go(func() error {
			s.logger.Info(ctx, "Closing Prometheus...")
			return s.promServer.Shutdown(tctx)
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Info(ctx, "Closing HTTP error", "error", err)
	}
}

func (s *server) close() {
	s.httpServer.Close()
	if s.promServer != nil {
		s.promServer.Close()
	}
	s.repairSvc.Close()
	s.session.Close()
}
