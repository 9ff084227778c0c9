package signer

import (
	"strings"
	"testing"
)

func TestParams_Canonical(t *testing.T) {
	p := Params{PaymentID: "pay_1", OSType: "ios", IsWebView: false}
	if got := p.Canonical(); got != "pay_1|ios|false" {
		t.Fatalf("Canonical() = %q", got)
	}

	p.IsWebView = true
	if got := p.Canonical(); got != "pay_1|ios|true" {
		t.Fatalf("Canonical() = %q", got)
	}
}

func TestSign_KnownVector(t *testing.T) {
	// Well-known HMAC-SHA256 vector.
	s := New("key")
	mac := s.sign([]byte("The quick brown fox jumps over the lazy dog"))
	want := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if mac != want {
		t.Fatalf("hmac = %s, want %s", mac, want)
	}
}

func TestSign_Format(t *testing.T) {
	sig := New("k").Sign(Params{PaymentID: "pay_1", OSType: "ios"})

	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Fatalf("signature %q is not lowercase hex", sig)
	}
	if sig != New("k").Sign(Params{PaymentID: "pay_1", OSType: "ios"}) {
		t.Fatal("signature is not deterministic")
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	tests := []Params{
		{PaymentID: "pay_1", OSType: "ios", IsWebView: false},
		{PaymentID: "pay_2", OSType: "android", IsWebView: true},
		{PaymentID: "пэй-3", OSType: "", IsWebView: true},
	}

	s := New("k")
	for _, p := range tests {
		t.Run(p.Canonical(), func(t *testing.T) {
			if !s.Verify(p, s.Sign(p)) {
				t.Fatal("expected signature to verify")
			}
		})
	}
}

func TestVerify_RejectsTampering(t *testing.T) {
	s := New("k")
	base := Params{PaymentID: "pay_1", OSType: "ios", IsWebView: false}
	sig := s.Sign(base)

	tests := []struct {
		name   string
		signer *Signer
		params Params
		sig    string
	}{
		{"payment id changed", s, Params{PaymentID: "pay_2", OSType: "ios"}, sig},
		{"os type changed", s, Params{PaymentID: "pay_1", OSType: "android"}, sig},
		{"webview flipped", s, Params{PaymentID: "pay_1", OSType: "ios", IsWebView: true}, sig},
		{"different secret", New("k2"), base, sig},
		{"uppercase signature", s, base, strings.ToUpper(sig)},
		{"truncated signature", s, base, sig[:63]},
		{"empty signature", s, base, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.signer.Verify(tt.params, tt.sig) {
				t.Fatal("expected verification to fail")
			}
		})
	}
}
