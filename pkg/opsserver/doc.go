// Package opsserver serves the operational endpoints of a process that drives
// state machines: liveness on /healthz, readiness of snapshot backends on
// /readyz and Prometheus metrics on /metrics.
//
// Routing uses chi. Run blocks until the context is cancelled, SIGINT or
// SIGTERM arrives, or Shutdown is called.
//
//	reg := prometheus.NewRegistry()
//	collector := fsmmetrics.MustNew(fsmmetrics.WithRegisterer(reg))
//	srv := opsserver.NewFromConfig(cfg,
//		opsserver.WithGatherer(reg),
//		opsserver.WithCheck("postgres", pgstore.Healthcheck(pool)),
//		opsserver.WithLogger(log),
//	)
//	go srv.Run(ctx)
package opsserver
