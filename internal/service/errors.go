package service

import (
	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

// Service-level errors shared across checkout and reconciliation.
var (
	ErrCartEmpty          = domain.Errorf(domain.EINVALID, "", "Cart is empty")
	ErrMissingReference   = domain.Errorf(domain.EINVALID, "", "Order reference is required")
	ErrMissingTrackingID  = domain.Errorf(domain.EINVALID, "", "Provider tracking id is required")
	ErrMissingCustomer    = domain.Errorf(domain.EUNAUTHORIZED, "", "Customer identity is required")
	ErrProductUnavailable = domain.Errorf(domain.EINVALID, "", "One or more products are unavailable")
)
