// Package metadata persists the bootloader's armed-update state machine —
// three boolean flags and a swap size — in a single dedicated info
// sector, and the SHA-256 digest the uploader supplies for the staged
// image. The entire record lives in one sector: every setter reads it,
// mutates the in-RAM copy, erases the sector, and programs the whole
// record back.
package metadata

import (
	"encoding/binary"
	"errors"

	"openenterprise/dualbank/flash"
)

// ErrStorage wraps any underlying erase/program failure while persisting
// the record. Corresponds to spec's StorageError: the caller must still
// proceed to a safe boot path, it must not retry forever.
var ErrStorage = errors.New("metadata: storage write failed")

// marker is written non-erased (0x00000000) once a record has ever been
// written, and left at its erased value (0xFFFFFFFF) otherwise. A marker
// that is neither value indicates a torn/corrupted write.
const (
	markerErased    = 0xFFFFFFFF
	markerWritten   = 0x00000000
	recordLen       = 4 + 1 + 1 + 1 + 4 + 32 // marker, 3 flags, swap_size, digest
	flagSet         = 0x01
	flagUnset       = 0xFF
)

// Record is the in-RAM view of the metadata sector.
type Record struct {
	HasNewFirmware bool
	AfterRollback  bool
	ShouldRollback bool
	SwapSize       uint32
	Digest         [32]byte
}

// Store owns the single info sector and its Record.
type Store struct {
	dev      flash.Device
	infoAddr uint32
	infoLen  uint32
}

// NewStore binds a Store to the info sector at [infoAddr, infoAddr+infoLen).
// infoLen must be at least one sector.
func NewStore(dev flash.Device, infoAddr, infoLen uint32) *Store {
	return &Store{dev: dev, infoAddr: infoAddr, infoLen: infoLen}
}

// Load reads the current record. A corrupted marker (neither all-erased
// nor all-written) is treated as all-false per spec §4.B, never as an
// error: the store must always boot into a well-defined state.
func (s *Store) Load() Record {
	buf := make([]byte, recordLen)
	if err := s.dev.Read(s.infoAddr, buf); err != nil {
		return Record{}
	}
	marker := binary.LittleEndian.Uint32(buf[0:4])
	if marker != markerWritten {
		return Record{}
	}
	rec := Record{
		HasNewFirmware: buf[4] == flagSet,
		AfterRollback:  buf[5] == flagSet,
		ShouldRollback: buf[6] == flagSet,
		SwapSize:       binary.LittleEndian.Uint32(buf[7:11]),
	}
	copy(rec.Digest[:], buf[11:43])
	return rec
}

// save does the read-modify-erase-program cycle for the whole record.
// It is the only place that touches flash for this store.
func (s *Store) save(rec Record) error {
	buf := make([]byte, flash.AlignUp(recordLen, flash.Align))
	for i := range buf {
		buf[i] = 0xFF
	}
	binary.LittleEndian.PutUint32(buf[0:4], markerWritten)
	buf[4] = boolByte(rec.HasNewFirmware)
	buf[5] = boolByte(rec.AfterRollback)
	buf[6] = boolByte(rec.ShouldRollback)
	binary.LittleEndian.PutUint32(buf[7:11], rec.SwapSize)
	copy(buf[11:43], rec.Digest[:])

	if err := s.dev.Erase(s.infoAddr, flash.SectorSize); err != nil {
		return ErrStorage
	}
	if err := s.dev.Program(s.infoAddr, buf); err != nil {
		return ErrStorage
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return flagSet
	}
	return flagUnset
}

// --- typed getters ---

func (s *Store) HasNewFirmware() bool { return s.Load().HasNewFirmware }
func (s *Store) AfterRollback() bool  { return s.Load().AfterRollback }
func (s *Store) ShouldRollback() bool { return s.Load().ShouldRollback }
func (s *Store) SwapSize() uint32     { return s.Load().SwapSize }
func (s *Store) Digest() [32]byte     { return s.Load().Digest }

// --- typed setters, each a full read-modify-erase-program cycle ---

func (s *Store) SetHasNewFirmware(v bool) error {
	rec := s.Load()
	rec.HasNewFirmware = v
	return s.save(rec)
}

func (s *Store) SetAfterRollback(v bool) error {
	rec := s.Load()
	rec.AfterRollback = v
	return s.save(rec)
}

func (s *Store) SetShouldRollback(v bool) error {
	rec := s.Load()
	rec.ShouldRollback = v
	return s.save(rec)
}

// MarkDownloadSlotValid records the digest and swap size of a freshly
// staged image, ahead of Verify() being called.
func (s *Store) MarkDownloadSlotValid(swapSize uint32, digest [32]byte) error {
	rec := s.Load()
	rec.SwapSize = swapSize
	rec.Digest = digest
	return s.save(rec)
}

// MarkDownloadSlotInvalid clears the swap size and digest so a half-staged
// or rejected image is never mistaken for a verified one.
func (s *Store) MarkDownloadSlotInvalid() error {
	rec := s.Load()
	rec.SwapSize = 0
	rec.Digest = [32]byte{}
	return s.save(rec)
}

// ApplyRecoveryCommit, ApplyRollback, ApplySwapAndArm and ApplyPassthrough
// implement the exact per-transition flag effects from spec §4.E, as one
// atomic save each (a single erase-program cycle, not one per flag).

// ApplyRecoveryCommit is also used for the post-verify Swap-and-commit
// path reached from Recovery.
func (s *Store) ApplyRecoveryCommit() error {
	rec := s.Load()
	rec.ShouldRollback = false
	rec.HasNewFirmware = false
	rec.AfterRollback = false
	rec.SwapSize = 0
	rec.Digest = [32]byte{}
	return s.save(rec)
}

func (s *Store) ApplyRollback() error {
	rec := s.Load()
	rec.ShouldRollback = false
	rec.HasNewFirmware = false
	rec.AfterRollback = true
	rec.SwapSize = 0
	rec.Digest = [32]byte{}
	return s.save(rec)
}

func (s *Store) ApplySwapAndArm() error {
	rec := s.Load()
	rec.HasNewFirmware = true
	rec.AfterRollback = false
	rec.ShouldRollback = true
	rec.SwapSize = 0
	rec.Digest = [32]byte{}
	return s.save(rec)
}

func (s *Store) ApplyPassthrough() error {
	rec := s.Load()
	rec.ShouldRollback = false
	rec.HasNewFirmware = false
	return s.save(rec)
}
