//go:build tinygo

// Command bootloader is the on-target entry point: it decides between
// passthrough, rollback, swap-and-arm, or recovery, performs whichever
// flash work that decision requires, and either hands off to the
// application slot or stands up the recovery HTTP server.
package main

import (
	"log/slog"
	"machine"
	"net/netip"
	"time"

	"openenterprise/dualbank/beacon"
	"openenterprise/dualbank/bootcore"
	"openenterprise/dualbank/config"
	"openenterprise/dualbank/credentials"
	"openenterprise/dualbank/flash"
	"openenterprise/dualbank/flashdrv"
	"openenterprise/dualbank/handoff"
	"openenterprise/dualbank/metadata"
	"openenterprise/dualbank/netinit"
	"openenterprise/dualbank/recovery"
	"openenterprise/dualbank/session"
	"openenterprise/dualbank/swap"
	"openenterprise/dualbank/telemetry"
	"openenterprise/dualbank/version"

	"github.com/soypat/lneto/tcp"
)

// Strap pins read for the GPIO recovery-trigger policy.
const (
	pinTrigger0 = machine.GPIO14
	pinTrigger1 = machine.GPIO15
)

const uploadPage = `<!doctype html><html><body>
<h1>dualbank recovery</h1>
<form method="POST" action="/upload" enctype="application/octet-stream">
<input type="file" name="image"><input type="submit" value="Flash">
</form>
<p><a href="/reboot">reboot</a></p>
</body></html>`

func main() {
	logger := slog.New(telemetry.NewSlogHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 8000})
	machine.Watchdog.Start()

	mm := config.Memory()
	dev := flashdrv.Driver{}
	store := metadata.NewStore(dev, mm.InfoAddr, flash.SectorSize)
	eng := &swap.Engine{Dev: dev, Crit: flashdrv.CriticalSection}
	layout := bootcore.Layout{AppBase: mm.AppBase, DownloadBase: mm.DownloadBase, SlotLen: mm.SlotLen}

	trigger := readRecoveryTrigger(store)
	logger.Info("boot:decide", slog.Bool("recovery_trigger", trigger))

	action, err := bootcore.Run(store, eng, layout, trigger)
	if err != nil {
		logger.Error("boot:action-failed", slog.String("action", action.String()), slog.String("err", err.Error()))
		// Flash is in an indeterminate state; recovery is the only safe path.
		action = bootcore.Recovery
	}
	logger.Info("boot:action", slog.String("action", action.String()), slog.String("version", version.Version))

	machine.Watchdog.Update()

	if action != bootcore.Recovery {
		logger.Info("boot:handoff", slog.Uint64("addr", uint64(mm.AppBase)))
		handoff.Jump(mm.AppBase)
		return // unreachable
	}

	runRecovery(logger, store, eng, layout, mm)
}

// readRecoveryTrigger applies the board's configured trigger policy.
func readRecoveryTrigger(store *metadata.Store) bool {
	switch config.Trigger() {
	case config.TriggerFlagUnion:
		rec := store.Load()
		return bootcore.FlagUnionTrigger(rec.ShouldRollback, rec.HasNewFirmware, false, rec.AfterRollback)
	default:
		pinTrigger0.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		pinTrigger1.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		return bootcore.GPIOTrigger(!pinTrigger0.Get(), !pinTrigger1.Get())
	}
}

func runRecovery(logger *slog.Logger, store *metadata.Store, eng *swap.Engine, layout bootcore.Layout, mm config.MemoryMap) {
	var pub beacon.Publisher = beacon.Nop{}
	brokerAddr, haveBroker := config.BrokerAddr()

	stackReady, netRes, err := netinit.Bootstrap(credentials.NetSSID(), credentials.NetJoinSecret(), netinit.Config{
		Hostname:     "dualbank-recovery",
		MaxDHCPTries: 3,
		StaticAddr:   netip.AddrFrom4([4]byte{192, 168, 0, 100}),
		StaticPrefix: 24,
	}, logger)
	if err != nil {
		logger.Error("recovery:net-failed", slog.String("err", err.Error()))
		// No network means the recovery server can never be reached;
		// there is nothing left to do but let the watchdog reset us.
		for {
			time.Sleep(time.Second)
		}
	}
	logger.Info("recovery:listening", slog.String("addr", netRes.Addr.String()))

	if haveBroker {
		pub = &beacon.MQTTPublisher{
			Stack:    stackReady,
			Broker:   brokerAddr,
			Topic:    []byte(config.MQTTTopic()),
			DeviceID: config.DeviceID(),
			Username: credentials.MQTTUsername(),
			Password: credentials.MQTTPassword(),
			Logger:   logger,
		}
	}
	pub.Publish(beacon.EventEntered)

	var conn tcp.Conn
	var rxBuf, txBuf [2048]byte
	if err := conn.Configure(tcp.ConnConfig{RxBuf: rxBuf[:], TxBuf: txBuf[:], TxPacketQueueSize: 2}); err != nil {
		logger.Error("recovery:configure-failed", slog.String("err", err.Error()))
		return
	}

	const recoveryPort = 80
	for {
		machine.Watchdog.Update()
		conn.Abort()
		if err := stackReady.ListenTCP(&conn, recoveryPort); err != nil {
			logger.Error("recovery:listen-failed", slog.String("err", err.Error()))
			time.Sleep(3 * time.Second)
			continue
		}
		for conn.State().IsPreestablished() {
			time.Sleep(10 * time.Millisecond)
			machine.Watchdog.Update()
		}
		if !conn.State().IsSynchronized() {
			continue
		}

		// Fresh per connection: a Sink's erased-sector cache must not
		// outlive the session that filled it, or a retry after a bad
		// digest skips erase on sectors this failed attempt already
		// programmed.
		srv := &recovery.Server{
			Sink:         session.NewFlashSink(eng.Dev, layout.DownloadBase),
			Verifier:     &session.Verifier{Dev: eng.Dev, Base: layout.DownloadBase, Store: store},
			Announcer:    &session.Announcer{Store: store},
			Committer:    &session.Committer{Store: store, Engine: eng, Layout: layout},
			Beacon:       pub,
			Page:         []byte(uploadPage),
			Align:        flash.Align,
			MaxImageSize: mm.SlotLen,
			RebootFunc:   handoff.SoftReset,
		}
		outcome := srv.HandleConnection(&conn)
		logger.Info("recovery:session-done", slog.String("outcome", outcome.String()))
		conn.Close()
		if outcome == recovery.OutcomeVerifyOK {
			logger.Info("recovery:handoff", slog.Uint64("addr", uint64(mm.AppBase)))
			handoff.Jump(mm.AppBase)
		}
	}
}
