package billing

import "errors"

var (
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrNothingToBill    = errors.New("nothing_to_bill")
	ErrInvoiceLocked    = errors.New("invoice_locked")
	ErrUnknownReference = errors.New("unknown_reference")
	ErrPaymentOverage   = errors.New("payment_overage")
	ErrInvalidPayment   = errors.New("invalid_payment")
)
