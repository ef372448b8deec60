package sandbox

import "testing"

func TestDomainProxyAllowedExactAndWildcard(t *testing.T) {
	p, err := StartProxy([]string{"api.anthropic.com", "*.githubusercontent.com"})
	if err != nil {
		t.Fatalf("StartProxy: %v", err)
	}
	defer p.Close()

	cases := []struct {
		host string
		want bool
	}{
		{"api.anthropic.com", true},
		{"api.anthropic.com:443", true},
		{"raw.githubusercontent.com", true},
		{"evil.com", false},
	}
	for _, c := range cases {
		if got := p.allowed(c.host); got != c.want {
			t.Errorf("allowed(%q) = %v, want %v", c.host, got, c.want)
		}
	}
}

func TestDomainProxyPortIsAssigned(t *testing.T) {
	p, err := StartProxy(nil)
	if err != nil {
		t.Fatalf("StartProxy: %v", err)
	}
	defer p.Close()
	if p.Port() == 0 {
		t.Fatal("expected a non-zero listening port")
	}
}

func TestDomainProxyCloseIsIdempotent(t *testing.T) {
	p, err := StartProxy(nil)
	if err != nil {
		t.Fatalf("StartProxy: %v", err)
	}
	p.Close()
	p.Close() // must not panic or double-close the listener
}
