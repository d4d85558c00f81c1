package domain

import "errors"

var (
	// Storage errors
	ErrStorageUnavailable = errors.New("local store has not been initialized")
	ErrStorageFailed      = errors.New("local store operation failed")
	ErrRecordNotFound     = errors.New("record not found")

	// Sync errors
	ErrDeviceOffline     = errors.New("device is offline")
	ErrSyncItemNotFound  = errors.New("sync queue item not found")
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrUnknownOperation  = errors.New("unknown sync operation")

	// Payment errors
	ErrAllProvidersFailed = errors.New("all payment providers failed")
	ErrStatusUnresolvable = errors.New("unable to determine payment status")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCurrency    = errors.New("unsupported currency")
	ErrMissingCustomer    = errors.New("customer name and email are required")
)
