package bootcore

import (
	"testing"

	"openenterprise/dualbank/flash"
	"openenterprise/dualbank/metadata"
	"openenterprise/dualbank/swap"
)

const slotLen = 2 * flash.SectorSize

func newFixture() (*metadata.Store, *swap.Engine, Layout) {
	dev := flash.NewMemDevice(3*slotLen, 0xFF)
	store := metadata.NewStore(dev, 2*slotLen, flash.SectorSize)
	eng := &swap.Engine{Dev: dev}
	layout := Layout{AppBase: 0, DownloadBase: slotLen, SlotLen: slotLen}
	return store, eng, layout
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestRunFreshDevicePassesThrough(t *testing.T) {
	store, eng, layout := newFixture()
	action, err := Run(store, eng, layout, false)
	if err != nil {
		t.Fatal(err)
	}
	if action != Passthrough {
		t.Fatalf("expected Passthrough on fresh device, got %v", action)
	}
	rec := store.Load()
	if rec.ShouldRollback || rec.HasNewFirmware {
		t.Fatal("passthrough must leave flags false")
	}
}

func TestRunSwapAndArmThenRollback(t *testing.T) {
	store, eng, layout := newFixture()

	// Application staged an image and called PerformUpdate.
	must(t, store.PerformUpdate())

	action, err := Run(store, eng, layout, false)
	if err != nil {
		t.Fatal(err)
	}
	if action != SwapAndArm {
		t.Fatalf("expected SwapAndArm, got %v", action)
	}
	rec := store.Load()
	if !rec.ShouldRollback || !rec.HasNewFirmware {
		t.Fatal("swap-and-arm must set should_rollback and has_new_firmware")
	}

	// New image never commits; next boot must roll back.
	action, err = Run(store, eng, layout, false)
	if err != nil {
		t.Fatal(err)
	}
	if action != Rollback {
		t.Fatalf("expected Rollback on next boot without commit, got %v", action)
	}
	rec = store.Load()
	if !rec.AfterRollback || rec.HasNewFirmware || rec.ShouldRollback {
		t.Fatalf("unexpected record after rollback: %+v", rec)
	}
}

func TestRunCommitPreventsRollback(t *testing.T) {
	store, eng, layout := newFixture()
	must(t, store.PerformUpdate())
	if _, err := Run(store, eng, layout, false); err != nil {
		t.Fatal(err)
	}

	// Application confirms the new image is healthy.
	must(t, store.MarkShouldNotRollback())
	must(t, store.MarkHasNoNewFirmware())

	action, err := Run(store, eng, layout, false)
	if err != nil {
		t.Fatal(err)
	}
	if action != Passthrough {
		t.Fatalf("expected Passthrough after commit, got %v", action)
	}
}

func TestRunRecoveryTriggerTakesPriority(t *testing.T) {
	store, eng, layout := newFixture()
	must(t, store.PerformUpdate())
	action, err := Run(store, eng, layout, true)
	if err != nil {
		t.Fatal(err)
	}
	if action != Recovery {
		t.Fatalf("expected Recovery regardless of flags, got %v", action)
	}
	// Recovery returns without mutating state; the caller drives the HTTP
	// server and calls CommitRecovery explicitly.
	rec := store.Load()
	if !rec.HasNewFirmware {
		t.Fatal("Run must not mutate state on the Recovery path")
	}
}

func TestCommitRecoverySwapsAndClearsEverything(t *testing.T) {
	store, eng, layout := newFixture()
	digest := [32]byte{9}
	must(t, store.MarkDownloadSlotValid(flash.SectorSize, digest))

	if err := CommitRecovery(store, eng, layout); err != nil {
		t.Fatal(err)
	}
	rec := store.Load()
	if rec.HasNewFirmware || rec.AfterRollback || rec.ShouldRollback {
		t.Fatalf("expected every flag clear after commit, got %+v", rec)
	}
	if rec.SwapSize != 0 || rec.Digest != ([32]byte{}) {
		t.Fatal("expected download slot invalidated after commit")
	}
}
