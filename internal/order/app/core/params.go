package core

import "time"

type OrderParams struct {
	Port          int
	MaxConcurrent int
}

const (
	MinCustomerNameLen = 1
	MaxCustomerNameLen = 100

	MinTableNumber = 1
	MaxTableNumber = 100

	MinDeliveryAddressLen = 5
	MaxDeliveryAddressLen = 200

	MaxItemQuantity = 99

	// in seconds for db response
	WaitTime = 20

	DefaultChangedBy        = "order-service"
	RMQReconnectionInterval = 5 * time.Second
)

var AllowedDeliveryMethods = map[string]bool{
	"dine_in":  true,
	"takeout":  true,
	"delivery": true,
}

var AllowedPaymentMethods = map[string]bool{
	"cash":   true,
	"card":   true,
	"online": true,
}
