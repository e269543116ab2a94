package domain

import "strings"

// PaymentStatus is the engine's verdict on a payment, mapped from the
// provider's free-text status description.
type PaymentStatus string

const (
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusPending   PaymentStatus = "PENDING"
	StatusFailed    PaymentStatus = "FAILED"
	StatusInvalid   PaymentStatus = "INVALID"
	StatusUnknown   PaymentStatus = "UNKNOWN"
)

// Terminal reports whether polling should stop on this status.
func (s PaymentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusInvalid
}

// MapProviderStatus maps a provider status description to a PaymentStatus.
// Matching is case-insensitive and exact against the known vocabulary;
// anything else maps to StatusUnknown. The mapping is total and never fails,
// so a provider rollout of a new description degrades to UNKNOWN instead of
// breaking reconciliation.
func MapProviderStatus(description string) PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(description)) {
	case "COMPLETED":
		return StatusCompleted
	case "PENDING":
		return StatusPending
	case "FAILED":
		return StatusFailed
	case "INVALID":
		return StatusInvalid
	default:
		return StatusUnknown
	}
}

// OrderStatusFor converts a terminal payment status to the persisted order
// status. Only call with terminal statuses; COMPLETED is the single paid path.
func OrderStatusFor(s PaymentStatus) OrderStatus {
	if s == StatusCompleted {
		return OrderPaid
	}
	return OrderFailed
}
