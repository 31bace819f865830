package host

// registerExecutor records addr as the executor for chain.  Executors
// register themselves, so the caller must be addr.  A chain keeps its first
// executor for good.
func (c *call) registerExecutor(chain, addr string) error {
	if c.info.Sender != addr {
		return errUnauthorized
	}
	if chain == "" {
		str := "executor chain must not be empty"
		return hostError(ErrInvalidMessage, str, nil)
	}
	if err := c.validate(addr); err != nil {
		return err
	}
	if err := putExecutor(c.ctx.Store, chain, addr); err != nil {
		return err
	}

	log.Debugf("Wallet %s: registered executor %s for chain %s",
		c.ctx.Env.Contract.Address, addr, chain)

	c.resp.AddAttribute("action", "register_executor").
		AddAttribute("chain", chain).
		AddAttribute("addr", addr)
	return nil
}
