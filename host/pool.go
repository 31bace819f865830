package host

// addMember returns pool with member appended.
func addMember(pool []string, member string) ([]string, error) {
	if contains(pool, member) {
		str := "member " + member + " already added"
		return nil, hostError(ErrMemberAlreadyAdded, str, nil)
	}
	return append(pool, member), nil
}

// removeMember returns pool without member, keeping the order of the rest.
func removeMember(pool []string, member string) ([]string, error) {
	if !contains(pool, member) {
		str := "member " + member + " not found"
		return nil, hostError(ErrMemberNotFound, str, nil)
	}
	kept := make([]string, 0, len(pool)-1)
	for _, m := range pool {
		if m != member {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// editPool replaces *pool with the result of edit.  Only the owner may
// edit pools.  A pending change is left alone.
func (c *call) editPool(action string, pool *[]string, member string,
	edit func([]string, string) ([]string, error)) error {

	if err := c.requireOwner(); err != nil {
		return err
	}
	if err := c.validate(member); err != nil {
		return err
	}
	updated, err := edit(*pool, member)
	if err != nil {
		return err
	}
	*pool = updated

	c.resp.AddAttribute("action", action).AddAttribute("member", member)
	return nil
}

func (c *call) addRecoveryMember(member string) error {
	return c.editPool("add_recovery_member", &c.state.RecoveryPool, member,
		addMember)
}

func (c *call) addApprovalMember(member string) error {
	return c.editPool("add_approval_member", &c.state.ApprovalPool, member,
		addMember)
}

func (c *call) removeRecoveryMember(member string) error {
	return c.editPool("remove_recovery_member", &c.state.RecoveryPool,
		member, removeMember)
}

func (c *call) removeApprovalMember(member string) error {
	return c.editPool("remove_approval_member", &c.state.ApprovalPool,
		member, removeMember)
}
