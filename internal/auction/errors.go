package auction

import "errors"

// Rejection reasons surfaced by the state machine. Every rejected
// precondition maps to exactly one of these so callers can assert on why
// an operation failed, not merely that it failed.
var (
	ErrInvalidParameters  = errors.New("invalid auction parameters")
	ErrAlreadyInitialized = errors.New("auction already initialized")
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrAuctionExpired     = errors.New("auction has expired")
	ErrMaxSupplyReached   = errors.New("maximum supply reached")
	ErrBidTooLow          = errors.New("bid amount is less than current price")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrRefundNotAllowed   = errors.New("refund not allowed")
	ErrUnauthorized       = errors.New("only authority can withdraw funds")
	ErrNotGraduated       = errors.New("auction must be graduated to withdraw")
	ErrNothingToWithdraw  = errors.New("no funds to withdraw")
)
