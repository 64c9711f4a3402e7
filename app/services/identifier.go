package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Generated identifiers carry ORD- and TRK- prefixes so support staff can
// tell them apart at a glance. Uniqueness is enforced by database unique
// indexes; callers retry with fresh values on a duplicate-key conflict.

// NewOrderNo returns an order number like ORD-20260831142501-483920.
func NewOrderNo() string {
	return fmt.Sprintf("ORD-%s-%06d", time.Now().UTC().Format("20060102150405"), randomBelow(1_000_000))
}

// NewTrackingNo returns a tracking number like TRK-0048392017.
func NewTrackingNo() string {
	return fmt.Sprintf("TRK-%010d", randomBelow(10_000_000_000))
}

func randomBelow(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a time-derived value rather than panic mid-checkout.
		return time.Now().UnixNano() % max
	}
	return n.Int64()
}
