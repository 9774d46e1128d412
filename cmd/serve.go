package main

import (
	"context"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plylist/internal/server"
)

// Serve exposes Prometheus metrics and library status until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open()
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	srv := &http.Server{Addr: addr, Handler: r.router(m)}
	r.writePlain("→ Serving /metrics and /healthz on http://%s\n", addr)
	return server.Serve(ctx, srv, r.logger)
}

func (r *Runner) router(source server.StatsSource) server.Router {
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(server.NewMetricsHandler(r.registry))
	router.Handler(server.NewStatusHandler(source))
	return router
}
