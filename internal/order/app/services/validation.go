package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/models"

	"github.com/shopspring/decimal"
)

// ValidateSubmission checks everything a submit needs except the empty-order rule,
// which has its own error kind.
func ValidateSubmission(items []models.OrderItem, customer models.Customer, delivery models.DeliveryInfo) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}
	if err := validateDelivery(delivery); err != nil {
		return err
	}
	return validateItems(items)
}

func validateCustomer(customer models.Customer) error {
	name := strings.TrimSpace(customer.Name)
	nameLen := utf8.RuneCountInString(name)
	if nameLen < core.MinCustomerNameLen || nameLen > core.MaxCustomerNameLen {
		return &core.ValidationError{
			Field:   "customer.name",
			Message: fmt.Sprintf("length must be in range [%d, %d]", core.MinCustomerNameLen, core.MaxCustomerNameLen),
		}
	}
	if strings.TrimSpace(customer.Phone) == "" {
		return &core.ValidationError{Field: "customer.phone", Message: "is required"}
	}
	if customer.Email != "" && !strings.Contains(customer.Email, "@") {
		return &core.ValidationError{Field: "customer.email", Message: "is not an email address"}
	}
	return nil
}

func validateDelivery(delivery models.DeliveryInfo) error {
	if !core.AllowedPaymentMethods[delivery.PaymentMethod] {
		return &core.ValidationError{Field: "paymentMethod", Message: fmt.Sprintf("undefined method: %q", delivery.PaymentMethod)}
	}
	if !core.AllowedDeliveryMethods[delivery.DeliveryMethod] {
		return &core.ValidationError{Field: "deliveryMethod", Message: fmt.Sprintf("undefined method: %q", delivery.DeliveryMethod)}
	}

	switch delivery.DeliveryMethod {
	case models.DeliveryDineIn:
		if delivery.TableNumber == nil {
			return &core.ValidationError{Field: "tableNumber", Message: "is required for dine_in"}
		}
		if n := *delivery.TableNumber; n < core.MinTableNumber || n > core.MaxTableNumber {
			return &core.ValidationError{
				Field:   "tableNumber",
				Message: fmt.Sprintf("%d must be in range [%d, %d]", n, core.MinTableNumber, core.MaxTableNumber),
			}
		}
	case models.DeliveryDelivery:
		addrLen := utf8.RuneCountInString(strings.TrimSpace(delivery.DeliveryAddress))
		if addrLen < core.MinDeliveryAddressLen || addrLen > core.MaxDeliveryAddressLen {
			return &core.ValidationError{
				Field:   "deliveryAddress",
				Message: fmt.Sprintf("length must be in range [%d, %d]", core.MinDeliveryAddressLen, core.MaxDeliveryAddressLen),
			}
		}
	}
	return nil
}

func validateItems(items []models.OrderItem) error {
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			return &core.ValidationError{Field: field + ".name", Message: "is required"}
		}
		if item.Quantity < 1 || item.Quantity > core.MaxItemQuantity {
			return &core.ValidationError{
				Field:   field + ".quantity",
				Message: fmt.Sprintf("%d must be in range [1, %d]", item.Quantity, core.MaxItemQuantity),
			}
		}
		price := item.UnitPrice
		for _, c := range item.Customizations {
			price = price.Add(c.PriceDelta)
		}
		if item.UnitPrice.IsNegative() || price.LessThan(decimal.Zero) {
			return &core.ValidationError{Field: field + ".unitPrice", Message: "price with customizations must not be negative"}
		}
	}
	return nil
}

// normalizeDelivery drops fields that do not apply to the delivery method.
func normalizeDelivery(delivery models.DeliveryInfo) models.DeliveryInfo {
	switch delivery.DeliveryMethod {
	case models.DeliveryDineIn:
		delivery.DeliveryAddress = ""
	case models.DeliveryDelivery:
		delivery.TableNumber = nil
	case models.DeliveryTakeout:
		delivery.DeliveryAddress = ""
		delivery.TableNumber = nil
	}
	return delivery
}
