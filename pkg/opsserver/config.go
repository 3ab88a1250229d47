package opsserver

import "time"

type Config struct {
	Addr            string        `env:"OPS_ADDR" envDefault:":9090"`          // Addr is the address the operations endpoint listens on.
	ReadTimeout     time.Duration `env:"OPS_READ_TIMEOUT" envDefault:"10s"`    // ReadTimeout is the maximum duration for reading a request.
	WriteTimeout    time.Duration `env:"OPS_WRITE_TIMEOUT" envDefault:"10s"`   // WriteTimeout bounds writing a response, including a metrics scrape.
	CheckTimeout    time.Duration `env:"OPS_CHECK_TIMEOUT" envDefault:"3s"`    // CheckTimeout bounds a single readiness check.
	ShutdownTimeout time.Duration `env:"OPS_SHUTDOWN_TIMEOUT" envDefault:"5s"` // ShutdownTimeout is the time allowed for graceful shutdown.
}

// NewFromConfig creates a Server from cfg. Only non-zero values are applied
// and opts run afterwards.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 5+len(opts))

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.CheckTimeout > 0 {
		configOpts = append(configOpts, WithCheckTimeout(cfg.CheckTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	return New(append(configOpts, opts...)...)
}
