package enums

import "fmt"

// PaymentProvider identifies where an external payment originated.
type PaymentProvider string

const (
	ProviderPaystack PaymentProvider = "paystack"
	ProviderNomba    PaymentProvider = "nomba"
	ProviderZilla    PaymentProvider = "zilla"
	ProviderManual   PaymentProvider = "manual"
)

var validPaymentProviders = []PaymentProvider{
	ProviderPaystack,
	ProviderNomba,
	ProviderZilla,
	ProviderManual,
}

// IsValid reports whether the provider is supported.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// PaymentState maps a provider to the order payment state it settles into.
func (p PaymentProvider) PaymentState() PaymentState {
	switch p {
	case ProviderPaystack:
		return PaymentPaystack
	case ProviderNomba:
		return PaymentNomba
	default:
		return PaymentManual
	}
}

// ParsePaymentProvider converts raw input into PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
