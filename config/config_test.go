package config

import "testing"

func TestMemoryDefaultsWhenOverrideEmpty(t *testing.T) {
	m := Memory()
	if m.AppBase != DefaultAppBase || m.DownloadBase != DefaultDownloadBase {
		t.Fatalf("expected defaults, got %+v", m)
	}
}

func TestTriggerDefaultsToGPIO(t *testing.T) {
	if Trigger() != TriggerGPIO {
		t.Fatalf("expected TriggerGPIO default")
	}
}

func TestMQTTTopicDefault(t *testing.T) {
	if MQTTTopic() != "dualbank/recovery" {
		t.Fatalf("unexpected default topic: %q", MQTTTopic())
	}
}

func TestBrokerAddrEmptyIsNotOK(t *testing.T) {
	if _, ok := BrokerAddr(); ok {
		t.Fatalf("expected no broker configured in test embed files")
	}
}

func TestDeviceIDNonEmpty(t *testing.T) {
	if DeviceID() == "" {
		t.Fatalf("expected device_id.text to carry a value")
	}
}
