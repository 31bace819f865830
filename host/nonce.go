package host

// checkNonce moves the replay watermark of s up to nonce.  A nonce at or
// below the watermark is rejected and s is left as it was.  Gaps are
// allowed.
//
// The watermark is written into the same snapshot the guarded operation
// changes, so it is only persisted when that operation succeeds too.
func checkNonce(s *WalletState, nonce uint64) error {
	if nonce <= s.LastNonce {
		return errNonceAlreadyUsed
	}
	s.LastNonce = nonce
	return nil
}

// guarded runs f after advancing the watermark to nonce.
func (c *call) guarded(nonce uint64, f func() error) error {
	if err := checkNonce(c.state, nonce); err != nil {
		return err
	}
	return f()
}
