package services

import (
	"fmt"
	"math/rand/v2"
)

const (
	orderNumberPrefix   = "EL-"
	orderNumberMin      = 100000
	orderNumberMax      = 999999
	maxOrderNumberDraws = 5
)

// OrderNumberFunc draws a candidate human-facing order number.
type OrderNumberFunc func() string

// RandomOrderNumber returns "EL-" followed by a uniformly drawn six digit number.
func RandomOrderNumber() string {
	return fmt.Sprintf("%s%d", orderNumberPrefix, orderNumberMin+rand.IntN(orderNumberMax-orderNumberMin+1))
}
