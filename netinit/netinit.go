// Package netinit brings up the network stack the recovery server listens
// on: DHCP first, falling back to a static address after a bounded number
// of failed attempts, so a device with no DHCP server reachable (the
// common case in a bench recovery scenario) still becomes reachable.
//
// The address-selection and retry-counting logic lives here, independent
// of any concrete MAC driver, so it can be exercised on the host; the
// actual SPI bring-up of the external MAC lives in netinit_tinygo.go.
package netinit

import "net/netip"

// Config describes how to bring the network stack up.
type Config struct {
	Hostname      string
	StaticAddr    netip.Addr // used once DHCP attempts are exhausted
	StaticPrefix  int        // CIDR prefix length for StaticAddr
	MaxDHCPTries  int
}

// Result reports what address ended up in use and how it was obtained.
type Result struct {
	Addr      netip.Addr
	ViaDHCP   bool
	DHCPTries int
}

// attempter abstracts one DHCP attempt so the retry/fallback policy below
// can be tested without a real network stack.
type attempter interface {
	// tryDHCP attempts one DHCP transaction, returning the leased address
	// on success.
	tryDHCP() (netip.Addr, error)
}

// oui is this project's fixed 3-byte organizationally unique identifier,
// locally administered (the U/L bit in oui[0] is set) since no IEEE block
// was purchased for this exercise.
var oui = [3]byte{0x02, 0x4F, 0x45}

// DeriveMAC concatenates the fixed OUI with the last 3 bytes of the
// board's unique hardware ID, giving every board a MAC address that is
// both stable across reboots and, in practice, unique across boards
// without any provisioning step.
func DeriveMAC(uniqueID [8]byte) [6]byte {
	var mac [6]byte
	copy(mac[0:3], oui[:])
	copy(mac[3:6], uniqueID[5:8])
	return mac
}

// bringUp runs cfg.MaxDHCPTries DHCP attempts through a, falling back to
// cfg.StaticAddr if every attempt fails or MaxDHCPTries is 0.
func bringUp(a attempter, cfg Config) Result {
	tries := cfg.MaxDHCPTries
	for i := 0; i < tries; i++ {
		addr, err := a.tryDHCP()
		if err == nil {
			return Result{Addr: addr, ViaDHCP: true, DHCPTries: i + 1}
		}
	}
	return Result{Addr: cfg.StaticAddr, ViaDHCP: false, DHCPTries: tries}
}
