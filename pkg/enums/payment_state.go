package enums

import "fmt"

// PaymentState records how, and whether, an order has been paid.
type PaymentState string

const (
	PaymentUnpaid        PaymentState = "unpaid"
	PaymentPayOnDelivery PaymentState = "pay_on_delivery"
	PaymentPaystack      PaymentState = "paystack"
	PaymentNomba         PaymentState = "nomba"
	PaymentBankDeposit   PaymentState = "bank_deposit"
	PaymentManual        PaymentState = "manual"
)

var validPaymentStates = []PaymentState{
	PaymentUnpaid,
	PaymentPayOnDelivery,
	PaymentPaystack,
	PaymentNomba,
	PaymentBankDeposit,
	PaymentManual,
}

// IsValid reports whether the value matches the canonical payment enum.
func (p PaymentState) IsValid() bool {
	for _, candidate := range validPaymentStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsPaid reports whether money has actually been received in this state.
func (p PaymentState) IsPaid() bool {
	switch p {
	case PaymentPaystack, PaymentNomba, PaymentBankDeposit, PaymentManual:
		return true
	default:
		return false
	}
}

// ParsePaymentState converts raw input into PaymentState.
func ParsePaymentState(value string) (PaymentState, error) {
	for _, candidate := range validPaymentStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment state %q", value)
}
