package addrs

import "testing"

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"10.0.0.5", true},
		{"192.168.255.1", true},
		{"2001:db8::1", true},
		{"::1", true},
		{"", false},
		{"N/A", false},
		{"n/a", false},
		{"10.0.0", false},
		{"10.0.0.256", false},
		{"not-an-ip", false},
		{"10.0.0.5/32", false},
		{" 10.0.0.5", false},
	}

	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGateway(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.0.0.5", "10.0.0.4"},
		{"10.0.1.0", "10.0.0.255"},
		{"172.16.4.1", "172.16.4.0"},
		{"0.0.0.0", GatewayFallback}, // underflow
		{"2001:db8::2", GatewayFallback},
		{"", GatewayFallback},
		{"bogus", GatewayFallback},
	}

	for _, tt := range tests {
		if got := Gateway(tt.in); got != tt.want {
			t.Errorf("Gateway(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
