package fsmmetrics

import "errors"

var ErrRegisterMetrics = errors.New("fsmmetrics: failed to register metrics")
