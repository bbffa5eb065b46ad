//go:build tinygo

package beacon

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/lneto/tcp"
	"github.com/soypat/lneto/x/xnet"
	mqtt "github.com/soypat/natiu-mqtt"
)

// connectTimeout bounds the TCP dial and, separately, the connection
// deadline set for the CONNECT/PUBLISH exchange that follows it. A
// recovery session must never stall waiting on a slow or absent broker.
const connectTimeout = 3 * time.Second

// MQTTPublisher is a fire-and-forget Publisher backed by a single short
// MQTT session per event: dial, CONNECT, PUBLISH QoS0, disconnect. No
// subscribe, no retained state, no retry beyond the one attempt — grounded
// on the teacher's mqtt.go dial/connect/publish sequence, trimmed down to
// the one-way publish this component needs.
type MQTTPublisher struct {
	Stack    *xnet.StackAsync
	Broker   netip.AddrPort
	Topic    []byte
	DeviceID string
	// Username and Password authenticate the CONNECT, if the configured
	// broker requires it. Leaving both empty connects anonymously.
	Username string
	Password string
	Logger   *slog.Logger

	rxBuf [512]byte
	txBuf [512]byte
}

// Publish best-effort publishes event. Any failure along the way (dial,
// connect, publish) is logged and swallowed: the caller never sees it and
// never waits on it beyond those connectTimeout bounds.
func (m *MQTTPublisher) Publish(event string) {
	if m.Stack == nil || !m.Broker.IsValid() {
		return
	}
	payload := FormatPayload(event, m.DeviceID)

	var conn tcp.Conn
	if err := conn.Configure(tcp.ConnConfig{RxBuf: m.rxBuf[:], TxBuf: m.txBuf[:], TxPacketQueueSize: 2}); err != nil {
		m.logError("configure", err)
		return
	}

	rstack := m.Stack.StackRetrying(5 * time.Millisecond)
	lport := uint16(m.Stack.Prand32()>>17) + 1024
	if err := rstack.DoDialTCP(&conn, lport, m.Broker, connectTimeout, 1); err != nil {
		m.logError("dial", err)
		return
	}
	defer func() {
		conn.Close()
		conn.Abort()
	}()

	client := mqtt.NewClient(mqtt.ClientConfig{Decoder: mqtt.DecoderNoAlloc{UserBuffer: m.rxBuf[:]}})
	var varconn mqtt.VariablesConnect
	clientID := append([]byte(nil), m.DeviceID...)
	clientID = append(clientID, "-beacon"...)
	varconn.SetDefaultMQTT(clientID)
	if m.Username != "" {
		varconn.Username = []byte(m.Username)
		varconn.Password = []byte(m.Password)
	}

	conn.SetDeadline(time.Now().Add(connectTimeout))
	if err := client.StartConnect(&conn, &varconn); err != nil {
		m.logError("connect", err)
		return
	}
	for i := 0; i < 20 && !client.IsConnected(); i++ {
		time.Sleep(50 * time.Millisecond)
		if err := client.HandleNext(); err != nil {
			m.logError("handshake", err)
			return
		}
	}
	if !client.IsConnected() {
		return
	}

	flags, _ := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	pubVar := mqtt.VariablesPublish{TopicName: m.Topic, PacketIdentifier: uint16(m.Stack.Prand32())}
	if err := client.PublishPayload(flags, pubVar, payload); err != nil {
		m.logError("publish", err)
		return
	}
	client.Disconnect(nil)
}

func (m *MQTTPublisher) logError(stage string, err error) {
	if m.Logger != nil {
		m.Logger.Warn("beacon:"+stage+"-failed", slog.String("err", err.Error()))
	}
}
