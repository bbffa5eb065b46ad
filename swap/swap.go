// Package swap implements the sector-by-sector atomic exchange between the
// APP and DOWNLOAD slots. The whole exchange loop runs under a single
// critical section: a half-swap across sectors is a state neither boot
// nor rollback can recover from without the recovery path, so interrupts
// must stay masked for the entire loop, not per-sector.
package swap

import (
	"openenterprise/dualbank/flash"
)

// Engine exchanges bytes between two equal-length slots on a Device.
type Engine struct {
	Dev  flash.Device
	Crit flash.CriticalSection // nil means flash.Direct
}

func (e *Engine) crit() flash.CriticalSection {
	if e.Crit != nil {
		return e.Crit
	}
	return flash.Direct
}

// Swap exchanges nSectors sectors of flash.SectorSize bytes between appBase
// and downloadBase. After it returns, for every sector i < nSectors, the
// bytes previously at appBase+i*S are at downloadBase+i*S and vice versa.
//
// Per sector: copy APP[i] to RAM, copy DOWNLOAD[i] to RAM, erase both,
// program APP[i] with the old DOWNLOAD bytes and DOWNLOAD[i] with the old
// APP bytes. Swap is self-inverse: calling it again with the same
// nSectors restores both slots.
func (e *Engine) Swap(appBase, downloadBase, nSectors uint32) (err error) {
	e.crit()(func() {
		err = e.swapLocked(appBase, downloadBase, nSectors)
	})
	return err
}

func (e *Engine) swapLocked(appBase, downloadBase, nSectors uint32) error {
	a := make([]byte, flash.SectorSize)
	b := make([]byte, flash.SectorSize)

	for i := uint32(0); i < nSectors; i++ {
		off := i * flash.SectorSize
		appAddr := appBase + off
		downAddr := downloadBase + off

		if err := e.Dev.Read(appAddr, a); err != nil {
			return err
		}
		if err := e.Dev.Read(downAddr, b); err != nil {
			return err
		}
		if err := e.Dev.Erase(appAddr, flash.SectorSize); err != nil {
			return err
		}
		if err := e.Dev.Erase(downAddr, flash.SectorSize); err != nil {
			return err
		}
		if err := e.Dev.Program(appAddr, b); err != nil {
			return err
		}
		if err := e.Dev.Program(downAddr, a); err != nil {
			return err
		}
	}
	return nil
}
