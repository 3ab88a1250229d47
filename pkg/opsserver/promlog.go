package opsserver

import (
	"fmt"
	"log/slog"
)

// promLogger adapts slog to the promhttp error logger.
type promLogger struct {
	log *slog.Logger
}

func (l promLogger) Println(v ...any) {
	l.log.Error("metrics handler error", slog.String("detail", fmt.Sprint(v...)))
}
