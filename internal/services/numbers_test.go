package services

import (
	"strings"
	"testing"
	"time"
)

func TestNumberFormats(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	gen := NewNumberGenerator(
		WithNumberClock(fixedClock(base)),
		WithNumberRand(func(int) int { return 10 }), // letter A
	)

	suffix := suffixOf(base)

	if got, want := gen.OrderNumber(), "ORD"+suffix+"AAA"; got != want {
		t.Errorf("OrderNumber() = %s, want %s", got, want)
	}
	if got, want := gen.TransactionNumber(), "TXN2026"+suffix+"AAA"; got != want {
		t.Errorf("TransactionNumber() = %s, want %s", got, want)
	}
	if got, want := gen.TrackingNumber(), "SHIP2026"+suffix+"AAAA"; got != want {
		t.Errorf("TrackingNumber() = %s, want %s", got, want)
	}
	if got, want := gen.ShipmentNumber(), "SHP"+suffix; got != want {
		t.Errorf("ShipmentNumber() = %s, want %s", got, want)
	}
}

func TestOrderNumbersUniqueAcrossBurst(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	var calls int
	gen := NewNumberGenerator(WithNumberClock(func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Millisecond)
	}))

	const n = 10_000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		number := gen.OrderNumber()
		if !strings.HasPrefix(number, "ORD") {
			t.Fatalf("unexpected prefix in %s", number)
		}
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate order number %s after %d generations", number, i)
		}
		seen[number] = struct{}{}
	}
}

func TestNumberRandomTailAlphabet(t *testing.T) {
	gen := NewNumberGenerator()
	number := gen.OrderNumber()
	tail := number[len(number)-3:]
	for _, r := range tail {
		if !strings.ContainsRune(numberAlphabet, r) {
			t.Errorf("tail rune %q outside alphabet", r)
		}
	}
}
