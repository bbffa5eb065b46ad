package netinit

import (
	"errors"
	"net/netip"
	"testing"
)

type scriptedAttempter struct {
	fail int // number of leading calls that fail
	calls int
	addr netip.Addr
}

func (a *scriptedAttempter) tryDHCP() (netip.Addr, error) {
	a.calls++
	if a.calls <= a.fail {
		return netip.Addr{}, errors.New("no offer")
	}
	return a.addr, nil
}

func TestBringUpSucceedsOnFirstTry(t *testing.T) {
	a := &scriptedAttempter{addr: netip.MustParseAddr("192.168.1.50")}
	cfg := Config{MaxDHCPTries: 3, StaticAddr: netip.MustParseAddr("10.0.0.1")}
	r := bringUp(a, cfg)
	if !r.ViaDHCP || r.Addr != a.addr || r.DHCPTries != 1 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestBringUpFallsBackAfterExhaustingRetries(t *testing.T) {
	a := &scriptedAttempter{fail: 5}
	static := netip.MustParseAddr("10.0.0.1")
	cfg := Config{MaxDHCPTries: 3, StaticAddr: static}
	r := bringUp(a, cfg)
	if r.ViaDHCP || r.Addr != static || r.DHCPTries != 3 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestBringUpRecoversMidRetry(t *testing.T) {
	a := &scriptedAttempter{fail: 2, addr: netip.MustParseAddr("192.168.1.50")}
	cfg := Config{MaxDHCPTries: 5, StaticAddr: netip.MustParseAddr("10.0.0.1")}
	r := bringUp(a, cfg)
	if !r.ViaDHCP || r.DHCPTries != 3 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestBringUpZeroTriesGoesStraightToStatic(t *testing.T) {
	a := &scriptedAttempter{addr: netip.MustParseAddr("192.168.1.50")}
	static := netip.MustParseAddr("10.0.0.1")
	cfg := Config{MaxDHCPTries: 0, StaticAddr: static}
	r := bringUp(a, cfg)
	if r.ViaDHCP || r.Addr != static {
		t.Fatalf("unexpected result: %+v", r)
	}
	if a.calls != 0 {
		t.Fatalf("expected no DHCP calls, got %d", a.calls)
	}
}

func TestDeriveMACUsesFixedOUIAndLastThreeIDBytes(t *testing.T) {
	id := [8]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x11, 0x22, 0x33}
	mac := DeriveMAC(id)
	want := [6]byte{oui[0], oui[1], oui[2], 0x11, 0x22, 0x33}
	if mac != want {
		t.Fatalf("DeriveMAC(%x) = %x, want %x", id, mac, want)
	}
}

func TestDeriveMACDeterministic(t *testing.T) {
	id := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	if DeriveMAC(id) != DeriveMAC(id) {
		t.Fatalf("DeriveMAC is not deterministic for the same input")
	}
}
