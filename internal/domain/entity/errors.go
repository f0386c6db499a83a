package entity

import (
	"github.com/juju/errors"
)

// Domain error kinds. Validation and not-found conditions use the juju/errors
// NotValid and NotFound kinds; the rest are specific to scan processing.
const (
	ErrInvalidCheckpoint = errors.ConstError("checkpoint not on route")
	ErrRejected          = errors.ConstError("rejected")
	ErrSequenceAnomaly   = errors.ConstError("sequence anomaly")
	ErrStoreConflict     = errors.ConstError("store conflict")
	ErrDelivery          = errors.ConstError("delivery failed")
)
