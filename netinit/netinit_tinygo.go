//go:build tinygo

package netinit

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/cyw43439/examples/cywnet"
	"github.com/soypat/lneto/x/xnet"

	"openenterprise/dualbank/flashdrv"
)

// cywAttempter adapts one cywnet DHCP transaction to the attempter
// interface bringUp drives. Grounded on the teacher's main.go bring-up:
// DefaultWifiConfig, NewConfiguredPicoWithStack, SetupWithDHCP.
type cywAttempter struct {
	stack  *cywnet.Stack
	static netip.Addr
}

func (a *cywAttempter) tryDHCP() (netip.Addr, error) {
	var req [4]byte
	if a.static.Is4() {
		req = a.static.As4()
	}
	res, err := a.stack.SetupWithDHCP(cywnet.DHCPConfig{
		RequestedAddr: netip.AddrFrom4(req),
	})
	if err != nil {
		return netip.Addr{}, err
	}
	return res.AssignedAddr, nil
}

// Bootstrap brings up the external MAC over SPI and runs DHCP with static
// fallback, returning the live stack plus the address selected. logger
// receives progress exactly as the teacher's main.go does for its own
// WiFi bring-up.
func Bootstrap(ssid, password string, cfg Config, logger *slog.Logger) (*xnet.StackAsync, Result, error) {
	mac := DeriveMAC(flashdrv.Driver{}.UniqueID())
	logger.Info("netinit:mac", slog.String("addr", netMACString(mac)))

	devcfg := cyw43439.DefaultWifiConfig()
	devcfg.MACAddress = mac
	cystack, err := cywnet.NewConfiguredPicoWithStack(ssid, password, devcfg, cywnet.StackConfig{
		Hostname:    cfg.Hostname,
		MaxTCPPorts: 2, // recovery server + beacon publish
	})
	if err != nil {
		return nil, Result{}, err
	}

	go loopForeverStack(cystack)

	a := &cywAttempter{stack: cystack, static: cfg.StaticAddr}
	res := bringUp(a, cfg)
	logger.Info("netinit:ready",
		slog.String("addr", res.Addr.String()),
		slog.Bool("via_dhcp", res.ViaDHCP),
		slog.Int("dhcp_tries", res.DHCPTries))

	return cystack.LnetoStack(), res, nil
}

func netMACString(mac [6]byte) string {
	const hex = "0123456789abcdef"
	buf := make([]byte, 0, 17)
	for i, b := range mac {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, hex[b>>4], hex[b&0xF])
	}
	return string(buf)
}

// loopForeverStack services the network stack's packet queues; it must
// run for the lifetime of the process, exactly as in the teacher's main.go.
func loopForeverStack(stack *cywnet.Stack) {
	for {
		send, recv, _ := stack.RecvAndSend()
		if send == 0 && recv == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}
