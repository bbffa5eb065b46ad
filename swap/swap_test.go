package swap

import (
	"bytes"
	"testing"

	"openenterprise/dualbank/flash"
)

const slotLen = 4 * flash.SectorSize

func seeded(dev *flash.MemDevice, base uint32, fillByte byte) {
	buf := make([]byte, slotLen)
	for i := range buf {
		buf[i] = fillByte
	}
	dev.Erase(base, slotLen)
	dev.Program(base, buf)
}

func TestSwapExchangesSlots(t *testing.T) {
	dev := flash.NewMemDevice(3*slotLen, 0xFF)
	const appBase, downloadBase = 0, slotLen
	seeded(dev, appBase, 0xAA)
	seeded(dev, downloadBase, 0xBB)

	e := &Engine{Dev: dev}
	if err := e.Swap(appBase, downloadBase, slotLen/flash.SectorSize); err != nil {
		t.Fatal(err)
	}

	wantApp := bytes.Repeat([]byte{0xBB}, slotLen)
	wantDownload := bytes.Repeat([]byte{0xAA}, slotLen)
	if !bytes.Equal(dev.Bytes()[appBase:appBase+slotLen], wantApp) {
		t.Fatal("APP slot does not contain former DOWNLOAD bytes")
	}
	if !bytes.Equal(dev.Bytes()[downloadBase:downloadBase+slotLen], wantDownload) {
		t.Fatal("DOWNLOAD slot does not contain former APP bytes")
	}
}

func TestSwapIsSelfInverse(t *testing.T) {
	dev := flash.NewMemDevice(3*slotLen, 0xFF)
	const appBase, downloadBase = 0, slotLen
	seeded(dev, appBase, 0x11)
	seeded(dev, downloadBase, 0x22)

	before := append([]byte(nil), dev.Bytes()[:2*slotLen]...)

	e := &Engine{Dev: dev}
	n := uint32(slotLen / flash.SectorSize)
	if err := e.Swap(appBase, downloadBase, n); err != nil {
		t.Fatal(err)
	}
	if err := e.Swap(appBase, downloadBase, n); err != nil {
		t.Fatal(err)
	}

	after := dev.Bytes()[:2*slotLen]
	if !bytes.Equal(before, after) {
		t.Fatal("two consecutive swaps with the same n must restore both slots byte-for-byte")
	}
}

func TestSwapPartialSectorCount(t *testing.T) {
	dev := flash.NewMemDevice(3*slotLen, 0xFF)
	const appBase, downloadBase = 0, slotLen
	seeded(dev, appBase, 0x01)
	seeded(dev, downloadBase, 0x02)

	e := &Engine{Dev: dev}
	// Swap only the first sector; sectors beyond it must be untouched.
	if err := e.Swap(appBase, downloadBase, 1); err != nil {
		t.Fatal(err)
	}

	if dev.Bytes()[appBase] != 0x02 || dev.Bytes()[downloadBase] != 0x01 {
		t.Fatal("first sector should have swapped")
	}
	secondSector := appBase + flash.SectorSize
	if dev.Bytes()[secondSector] != 0x01 {
		t.Fatal("second sector of APP must be untouched by a 1-sector swap")
	}
}

func TestSwapRunsUnderCriticalSection(t *testing.T) {
	dev := flash.NewMemDevice(slotLen*2, 0xFF)
	var entered, exited bool
	crit := func(fn func()) {
		entered = true
		fn()
		exited = true
	}
	e := &Engine{Dev: dev, Crit: crit}
	if err := e.Swap(0, slotLen, 1); err != nil {
		t.Fatal(err)
	}
	if !entered || !exited {
		t.Fatal("expected the whole swap loop to run inside the critical section")
	}
}
