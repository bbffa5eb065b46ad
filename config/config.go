// Package config holds board configuration: the compile-time-embedded
// values that differ per build (flash memory map, broker address, recovery
// trigger policy) but never per boot. Everything here is read once at
// startup; nothing is mutated afterward.
package config

import (
	_ "embed"
	"net/netip"
	"strconv"
	"strings"
)

// Memory map defaults. A board whose APP/DOWNLOAD slots live elsewhere
// overrides these via memory_map.text; see MemoryMap.
const (
	DefaultAppBase      = 0x10040000
	DefaultDownloadBase = 0x10140000
	DefaultSlotLen      = 0x00100000 // 1 MiB per slot
	DefaultInfoAddr     = 0x10038000
)

// TriggerPolicy selects which recovery trigger bootcore.Decide is fed.
type TriggerPolicy int

const (
	// TriggerGPIO reads two strap pins (bootcore.GPIOTrigger). The default:
	// it works even if the metadata record itself is corrupt.
	TriggerGPIO TriggerPolicy = iota
	// TriggerFlagUnion derives the trigger from the metadata record alone
	// (bootcore.FlagUnionTrigger), for boards without spare strap pins.
	TriggerFlagUnion
)

// Board identity: every board build embeds a non-empty device ID. The
// broker address may be left empty (see BrokerAddr).
var (
	//go:embed device_id.text
	deviceID string

	//go:embed broker.text
	brokerAddr string
)

// Optional overrides; an empty file means "use the default above".
var (
	//go:embed memory_map.text
	memoryMapOverride string

	//go:embed trigger_policy.text
	triggerPolicyOverride string

	//go:embed mqtt_topic.text
	mqttTopicOverride string
)

// DeviceID returns this board's unique identifier, used as the MQTT
// client ID suffix and the beacon payload's device= field.
func DeviceID() string {
	return strings.TrimSpace(deviceID)
}

// BrokerAddr returns the beacon's MQTT broker address, if configured.
// A board that ships without a broker.text override (or with an empty
// one) has no beacon: ok is false and the caller wires beacon.Nop.
func BrokerAddr() (addr netip.AddrPort, ok bool) {
	s := strings.TrimSpace(brokerAddr)
	if s == "" {
		return netip.AddrPort{}, false
	}
	addr, err := netip.ParseAddrPort(s)
	return addr, err == nil
}

// MQTTTopic returns the topic the beacon publishes to.
func MQTTTopic() string {
	if t := strings.TrimSpace(mqttTopicOverride); t != "" {
		return t
	}
	return "dualbank/recovery"
}

// MemoryMap is the flash layout bootcore.Layout is built from.
type MemoryMap struct {
	AppBase      uint32
	DownloadBase uint32
	SlotLen      uint32
	InfoAddr     uint32
}

// Memory returns the board's flash layout: the defaults above, unless
// memory_map.text supplies a "appBase,downloadBase,slotLen,infoAddr"
// override in decimal or 0x-hex, one value per comma-separated field.
func Memory() MemoryMap {
	m := MemoryMap{
		AppBase:      DefaultAppBase,
		DownloadBase: DefaultDownloadBase,
		SlotLen:      DefaultSlotLen,
		InfoAddr:     DefaultInfoAddr,
	}
	fields := strings.Split(strings.TrimSpace(memoryMapOverride), ",")
	if len(fields) != 4 {
		return m
	}
	vals := make([]uint32, 4)
	for i, f := range fields {
		n, err := strconv.ParseUint(strings.TrimSpace(f), 0, 32)
		if err != nil {
			return m
		}
		vals[i] = uint32(n)
	}
	m.AppBase, m.DownloadBase, m.SlotLen, m.InfoAddr = vals[0], vals[1], vals[2], vals[3]
	return m
}

// Trigger returns which recovery-trigger policy this board uses.
// Returns TriggerGPIO unless trigger_policy.text contains "flag-union".
func Trigger() TriggerPolicy {
	if strings.TrimSpace(triggerPolicyOverride) == "flag-union" {
		return TriggerFlagUnion
	}
	return TriggerGPIO
}
