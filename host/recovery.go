package host

import (
	"strconv"

	"github.com/abesuite/hostwallet/ledger"
)

// begin starts a pending ownership change toward target with the caller as
// its first vote.  The caller's authority has already been checked.
func (c *call) begin(method RecoveryMethod, target string) error {
	if c.state.Pending != nil {
		return errAlreadyRecovering
	}

	c.state.Pending = &Pending{
		Method:    method,
		Target:    target,
		StartedAt: c.ctx.Env.Block.Height,
	}
	if err := resetVotes(c.ctx.Store); err != nil {
		return err
	}
	votes, err := putVote(c.ctx.Store, c.info.Sender)
	if err != nil {
		return err
	}

	log.Debugf("Wallet %s: %v toward %s started by %s",
		c.ctx.Env.Contract.Address, method, target, c.info.Sender)

	c.resp.AddAttribute("action", "begin_"+actionName(method)).
		AddAttribute("target", target).
		AddAttribute("votes", strconv.Itoa(votes))
	return c.maybeCommit(votes)
}

// beginSocialRecovery lets a recovery pool member other than the owner
// start moving the wallet to target.
func (c *call) beginSocialRecovery(target string) error {
	if err := c.validate(target); err != nil {
		return err
	}
	if target == c.state.Owner {
		return errSelfRecovery
	}
	if !c.isRecoveryVoter(SocialRecovery) {
		return errUnauthorized
	}
	return c.begin(SocialRecovery, target)
}

// beginTransferOwnership lets the owner start handing the wallet to target.
func (c *call) beginTransferOwnership(target string) error {
	if err := c.validate(target); err != nil {
		return err
	}
	if target == c.state.Owner {
		return errSelfRecovery
	}
	if err := c.requireOwner(); err != nil {
		return err
	}
	return c.begin(TransferOwnership, target)
}

// approve records the caller's vote for the pending change of the given
// method toward target.
func (c *call) approve(method RecoveryMethod, target string) error {
	if !c.isRecoveryVoter(method) {
		return errUnauthorized
	}
	p := c.state.Pending
	if p == nil || p.Method != method {
		return errNotInProgress
	}
	if target != p.Target {
		return errInvariantMismatch
	}

	voters, err := fetchVotes(c.ctx.Store)
	if err != nil {
		return err
	}
	if contains(voters, c.info.Sender) {
		return errAlreadyVoted
	}
	votes, err := putVote(c.ctx.Store, c.info.Sender)
	if err != nil {
		return err
	}

	c.resp.AddAttribute("action", "approve_"+actionName(method)).
		AddAttribute("target", target).
		AddAttribute("votes", strconv.Itoa(votes))
	return c.maybeCommit(votes)
}

// isRecoveryVoter reports whether the caller may vote on a change of the
// given method.  The owner never votes on its own social recovery.
func (c *call) isRecoveryVoter(method RecoveryMethod) bool {
	sender := c.info.Sender
	if !contains(c.state.RecoveryPool, sender) {
		return false
	}
	return method != SocialRecovery || sender != c.state.Owner
}

// maybeCommit commits the pending change once votes reaches its quorum.
func (c *call) maybeCommit(votes int) error {
	if uint64(votes) < c.state.quorum(c.state.Pending.Method) {
		return nil
	}
	return c.commit()
}

// commit hands the wallet to the pending target and tells the master.
func (c *call) commit() error {
	p := c.state.Pending
	if p == nil {
		panic("host: commit without a pending transfer")
	}

	oldOwner := c.state.Owner
	c.state.Owner = p.Target
	c.state.Pending = nil
	if err := resetVotes(c.ctx.Store); err != nil {
		return err
	}

	msg, err := ledger.NewExecuteMsg(c.state.Master, masterMsg{
		UpdateOwner: &UpdateOwnerMsg{
			OldOwner: oldOwner,
			NewOwner: p.Target,
		},
	}, nil)
	if err != nil {
		return hostError(ErrInvalidMessage, "failed to encode owner update", err)
	}
	c.resp.AddMessage(msg).
		AddAttribute("old_owner", oldOwner).
		AddAttribute("new_owner", p.Target)

	log.Infof("Wallet %s: ownership moved from %s to %s by %v",
		c.ctx.Env.Contract.Address, oldOwner, p.Target, p.Method)
	return nil
}

// cancelPending lets the owner drop a pending change.
func (c *call) cancelPending() error {
	if err := c.requireOwner(); err != nil {
		return err
	}
	p := c.state.Pending
	if p == nil {
		return errNotInProgress
	}
	c.state.Pending = nil
	if err := resetVotes(c.ctx.Store); err != nil {
		return err
	}

	c.resp.AddAttribute("action", "cancel_pending").
		AddAttribute("method", p.Method.String()).
		AddAttribute("target", p.Target)
	return nil
}

func actionName(m RecoveryMethod) string {
	if m == SocialRecovery {
		return "social_recovery"
	}
	return "transfer_ownership"
}
