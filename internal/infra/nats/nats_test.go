package natsclient

import (
	"testing"

	"github.com/sifan077/paylink/config"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NATSConfig
		want string
	}{
		{"defaults", config.NATSConfig{}, "nats://localhost:4222"},
		{"explicit", config.NATSConfig{Host: "nats", Port: 4333}, "nats://nats:4333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URL(tt.cfg); got != tt.want {
				t.Fatalf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}
