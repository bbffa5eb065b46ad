// Package session adapts the storage-facing packages (flash, metadata,
// verify, swap, bootcore) to the small interfaces recovery.Server needs,
// so the recovery HTTP handler never imports flash directly. This is the
// wiring layer cmd/bootloader builds afresh for each accepted recovery
// connection.
package session

import (
	"openenterprise/dualbank/bootcore"
	"openenterprise/dualbank/flash"
	"openenterprise/dualbank/metadata"
	"openenterprise/dualbank/swap"
	"openenterprise/dualbank/verify"
)

// FlashSink streams an uploaded image into the DOWNLOAD slot, erasing
// each sector exactly once, the first time a write touches it.
type FlashSink struct {
	Dev    flash.Device
	Base   uint32
	erased map[uint32]bool
}

func NewFlashSink(dev flash.Device, base uint32) *FlashSink {
	return &FlashSink{Dev: dev, Base: base, erased: make(map[uint32]bool)}
}

func (f *FlashSink) WriteAligned(offset uint32, buf []byte) error {
	addr := f.Base + offset
	sector := (addr / flash.SectorSize) * flash.SectorSize
	if !f.erased[sector] {
		if err := f.Dev.Erase(sector, flash.SectorSize); err != nil {
			return err
		}
		f.erased[sector] = true
	}
	return f.Dev.Program(addr, buf)
}

// Verifier checks the staged DOWNLOAD slot against the digest the upload
// announced, via metadata.Store and the verify package.
type Verifier struct {
	Dev   flash.Device
	Base  uint32
	Store *metadata.Store
}

func (v *Verifier) Verify(length uint32) (bool, error) {
	return verify.Verify(v.Dev, v.Base, length, v.Store.Digest())
}

// Announcer records the upload's declared length and digest ahead of
// Verifier.Verify being called, per metadata's MarkDownloadSlotValid.
type Announcer struct {
	Store *metadata.Store
}

func (a *Announcer) Announce(length uint32, digest [32]byte) error {
	return a.Store.MarkDownloadSlotValid(length, digest)
}

// Committer performs the Recovery-path swap-and-commit once an upload
// has verified, via bootcore.CommitRecovery.
type Committer struct {
	Store  *metadata.Store
	Engine *swap.Engine
	Layout bootcore.Layout
}

func (c *Committer) Commit() error {
	return bootcore.CommitRecovery(c.Store, c.Engine, c.Layout)
}
