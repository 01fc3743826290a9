package enums

import "fmt"

// ProductStatus controls catalog visibility.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

func (s ProductStatus) IsValid() bool {
	return s == ProductStatusActive || s == ProductStatusArchived
}

// ParseProductStatus converts raw input into ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	status := ProductStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid product status %q", value)
	}
	return status, nil
}
