package planner

import "context"

// optimisticMutation applies a state change locally, attempts it remotely,
// and reverts on failure. The favourite store uses the full
// apply/attempt/revert cycle; the persistence synchronizer uses the
// keep-local-edits variant (nil revert) so a failed save never rolls back
// what the user typed.
type optimisticMutation struct {
	apply   func()
	attempt func(ctx context.Context) error
	revert  func()
}

// run executes the mutation. The local apply happens before the remote
// attempt; on remote failure the revert (when present) restores the
// pre-apply state and the error is returned to the caller.
func (m optimisticMutation) run(ctx context.Context) error {
	if m.apply != nil {
		m.apply()
	}
	err := m.attempt(ctx)
	if err != nil && m.revert != nil {
		m.revert()
	}
	return err
}
