package bootcore

import (
	"openenterprise/dualbank/flash"
	"openenterprise/dualbank/metadata"
	"openenterprise/dualbank/swap"
)

// Layout is the slot geometry the orchestrator needs: APP/DOWNLOAD base
// addresses and their shared length. INFO is owned entirely by the
// metadata.Store passed to Run.
type Layout struct {
	AppBase      uint32
	DownloadBase uint32
	SlotLen      uint32
}

// Run executes one non-Recovery boot decision: it decides the Action,
// performs the swap (if any) and the metadata transition, and returns the
// Action taken so the caller can log it and proceed to hand-off. Recovery
// is returned without side effects — the caller owns standing up the HTTP
// server (component F) and must call CommitRecovery itself once a
// verified image has been swapped in.
func Run(store *metadata.Store, eng *swap.Engine, layout Layout, recoveryTrigger bool) (Action, error) {
	rec := store.Load()
	action := Decide(recoveryTrigger, rec.ShouldRollback, rec.HasNewFirmware)

	n := flash.SectorsFor(rec.SwapSize, layout.SlotLen)

	switch action {
	case Recovery:
		return Recovery, nil

	case Rollback:
		if err := eng.Swap(layout.AppBase, layout.DownloadBase, n); err != nil {
			return action, err
		}
		return action, store.ApplyRollback()

	case SwapAndArm:
		if err := eng.Swap(layout.AppBase, layout.DownloadBase, n); err != nil {
			return action, err
		}
		return action, store.ApplySwapAndArm()

	default: // Passthrough
		return action, store.ApplyPassthrough()
	}
}

// CommitRecovery performs the Swap-and-commit sequence used once a
// Recovery-path upload has verified successfully: swap, then clear every
// armed-update flag and invalidate the download slot in one save.
func CommitRecovery(store *metadata.Store, eng *swap.Engine, layout Layout) error {
	rec := store.Load()
	n := flash.SectorsFor(rec.SwapSize, layout.SlotLen)
	if err := eng.Swap(layout.AppBase, layout.DownloadBase, n); err != nil {
		return err
	}
	return store.ApplyRecoveryCommit()
}
