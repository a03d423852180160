package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAccountFrozen          = errors.New("account frozen")
	ErrAccountClosed          = errors.New("account closed")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidAmount          = errors.New("amount must be non-zero")
	ErrInvalidCategory        = errors.New("invalid ledger category")
	ErrContestNotFound        = errors.New("contest not found")
	ErrAlreadySettled         = errors.New("contest already settled")
	ErrContestNotReady        = errors.New("contest not ready for settlement")
	ErrUnknownContestType     = errors.New("unknown contest type")
	ErrRoomSizeMismatch       = errors.New("room entry count does not match room size")
	ErrReconciliationMismatch = errors.New("ledger sum does not match account balance")
	ErrVersionConflict        = errors.New("optimistic lock conflict")
	ErrInvalidRequest         = errors.New("invalid request")
)
