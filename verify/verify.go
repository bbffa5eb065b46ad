// Package verify computes the SHA-256 digest of the staged image in the
// download slot and compares it to the digest the uploader recorded in
// the metadata store ahead of time.
package verify

import (
	"crypto/sha256"

	"openenterprise/dualbank/flash"
)

// Verify reads length bytes from dev starting at downloadBase, hashes
// them, and reports whether the digest matches want. It reads in
// flash.Align-sized chunks so it never needs a buffer as large as the
// image itself.
func Verify(dev flash.Device, downloadBase, length uint32, want [32]byte) (bool, error) {
	h := sha256.New()
	buf := make([]byte, flash.Align)

	remaining := length
	addr := downloadBase
	for remaining > 0 {
		n := uint32(len(buf))
		if remaining < n {
			n = remaining
		}
		if err := dev.Read(addr, buf[:n]); err != nil {
			return false, err
		}
		h.Write(buf[:n])
		addr += n
		remaining -= n
	}

	got := h.Sum(nil)
	var gotArr [32]byte
	copy(gotArr[:], got)
	return gotArr == want, nil
}
