package addrs

import (
	"net/netip"
	"strings"
)

// GatewayFallback is substituted when gateway arithmetic is undefined for a
// base address. It is syntactically valid, so it flows through probing and
// simply reports as unreachable.
const GatewayFallback = "0.0.0.0"

// sentinel used in the source sheet for "no address"
const naSentinel = "N/A"

// Valid reports whether s is a well-formed IPv4 or IPv6 literal. The empty
// string and the "N/A" sentinel (any case) are not addresses. Malformed
// input is a normal false, never an error.
func Valid(s string) bool {
	if s == "" || strings.EqualFold(s, naSentinel) {
		return false
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// Gateway returns the address immediately below the base address, treated as
// the first upstream hop. Defined only for IPv4 literals; anything else,
// including underflow below 0.0.0.0, yields GatewayFallback.
func Gateway(baseIP string) string {
	addr, err := netip.ParseAddr(baseIP)
	if err != nil || !addr.Is4() {
		return GatewayFallback
	}
	prev := addr.Prev()
	if !prev.IsValid() {
		return GatewayFallback
	}
	return prev.String()
}
