package services

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NumberGenerator produces human-facing reference numbers for orders,
// transactions, and shipments. Numbers combine a millisecond timestamp
// suffix with a short random tail, so uniqueness is probabilistic.
type NumberGenerator struct {
	clock     func() time.Time
	randIndex func(n int) int
}

// NumberGeneratorOption customises generator behaviour, primarily for tests.
type NumberGeneratorOption func(*NumberGenerator)

// WithNumberClock injects a custom clock.
func WithNumberClock(clock func() time.Time) NumberGeneratorOption {
	return func(g *NumberGenerator) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// WithNumberRand injects a custom random index source.
func WithNumberRand(randIndex func(n int) int) NumberGeneratorOption {
	return func(g *NumberGenerator) {
		if randIndex != nil {
			g.randIndex = randIndex
		}
	}
}

// NewNumberGenerator constructs a NumberGenerator with sane defaults.
func NewNumberGenerator(opts ...NumberGeneratorOption) *NumberGenerator {
	gen := &NumberGenerator{
		clock:     time.Now,
		randIndex: rand.IntN,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gen)
		}
	}
	return gen
}

// OrderNumber returns a new order number, e.g. ORD123456A7B.
func (g *NumberGenerator) OrderNumber() string {
	return "ORD" + g.timestampSuffix() + g.randomTail(3)
}

// TransactionNumber returns a new payment transaction number, e.g. TXN2026123456A7B.
func (g *NumberGenerator) TransactionNumber() string {
	now := g.clock()
	return fmt.Sprintf("TXN%d%s%s", now.Year(), suffixOf(now), g.randomTail(3))
}

// TrackingNumber returns a new shipment tracking number, e.g. SHIP2026123456A7B8.
func (g *NumberGenerator) TrackingNumber() string {
	now := g.clock()
	return fmt.Sprintf("SHIP%d%s%s", now.Year(), suffixOf(now), g.randomTail(4))
}

// ShipmentNumber returns a new shipment number, e.g. SHP123456. The suffix is
// derived from the clock alone so consecutive shipments sort chronologically;
// the unique identifier for a shipment is its TrackingNumber, not this value.
func (g *NumberGenerator) ShipmentNumber() string {
	return "SHP" + g.timestampSuffix()
}

func (g *NumberGenerator) timestampSuffix() string {
	return suffixOf(g.clock())
}

func suffixOf(t time.Time) string {
	return fmt.Sprintf("%06d", t.UnixMilli()%1_000_000)
}

func (g *NumberGenerator) randomTail(n int) string {
	tail := make([]byte, n)
	for i := range tail {
		tail[i] = numberAlphabet[g.randIndex(len(numberAlphabet))]
	}
	return string(tail)
}
