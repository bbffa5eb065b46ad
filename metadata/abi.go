package metadata

// The application-facing ABI from spec §6. A running application imports
// this package directly (the same way the teacher's config/credentials
// packages are imported by application code) to query and commit its own
// boot outcome. These are thin wrappers over the typed setters — kept
// separate so the ABI's naming matches spec exactly regardless of how the
// internal Record/Store API evolves.

// MarkHasNoNewFirmware clears has_new_firmware. Part of commit.
func (s *Store) MarkHasNoNewFirmware() error { return s.SetHasNewFirmware(false) }

// MarkShouldNotRollback clears should_rollback. The other half of commit:
// an application must call both this and MarkHasNoNewFirmware once it has
// decided the image it is running is healthy, or the next reset rolls
// back (spec §4.E arming semantics).
func (s *Store) MarkShouldNotRollback() error { return s.SetShouldRollback(false) }

// IsAfterFirmwareUpdate reports whether the running image is the result
// of an uncommitted swap-and-arm.
func (s *Store) IsAfterFirmwareUpdate() bool { return s.HasNewFirmware() }

// IsAfterRollback reports whether the running image is the result of a
// rollback.
func (s *Store) IsAfterRollback() bool { return s.AfterRollback() }

// PerformUpdate marks that a freshly staged image in the download slot is
// ready to be swapped in. The application must follow this with its own
// system reset (a plain NVIC-style reset, not the bootloader's hand-off
// jump — that direction only ever runs inside the bootloader itself); the
// next boot's decision core reads HasNewFirmware back as true and takes
// the Swap-and-arm path.
func (s *Store) PerformUpdate() error { return s.SetHasNewFirmware(true) }

// InitializeDownloadSlot is a no-op placeholder for the ABI name in spec
// §6: the download slot needs no format, it is a raw contiguous region
// (spec's Non-goals exclude a file-system abstraction). Kept so
// applications written against the documented ABI compile unchanged.
func (s *Store) InitializeDownloadSlot() error { return nil }

// MarkDownloadSlotValid and MarkDownloadSlotInvalid are defined in
// metadata.go; WriteToFlashAligned below completes the ABI's flash-access
// surface for an application that wants to stage an image itself (rather
// than via the recovery HTTP path) before calling PerformUpdate.

// WriteToFlashAligned writes buf (len(buf) a multiple of flash.Align) at
// offset bytes into the download slot. downloadBase binds the call to the
// slot; offset is not checked against the slot length. Callers typically
// close over downloadBase via a small adapter rather than passing it on
// every call.
func WriteToFlashAligned(dev interface {
	Program(addr uint32, buf []byte) error
}, downloadBase, offset uint32, buf []byte) error {
	return dev.Program(downloadBase+offset, buf)
}
