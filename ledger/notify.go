package ledger

// notificationBuffer is the number of results queued for a subscriber before
// further results are dropped.
const notificationBuffer = 64

// Subscription delivers the result of every committed call, in commit order.
type Subscription struct {
	id uint64
	l  *Ledger
	c  chan *TxResult
}

// Updates returns the channel results are delivered on.  It is closed when
// the subscription is canceled or the ledger is closed.
func (s *Subscription) Updates() <-chan *TxResult {
	return s.c
}

// Cancel stops delivery and closes the updates channel.
func (s *Subscription) Cancel() {
	l := s.l
	l.ntfnMtx.Lock()
	defer l.ntfnMtx.Unlock()

	if _, ok := l.clients[s.id]; !ok {
		return
	}
	delete(l.clients, s.id)
	close(s.c)
}

// Subscribe registers a new subscription.  Subscribing to a closed ledger
// returns a subscription whose channel is already closed.
func (l *Ledger) Subscribe() *Subscription {
	l.ntfnMtx.Lock()
	defer l.ntfnMtx.Unlock()

	s := &Subscription{
		id: l.nextID,
		l:  l,
		c:  make(chan *TxResult, notificationBuffer),
	}
	l.nextID++
	if l.closed {
		close(s.c)
		return s
	}
	l.clients[s.id] = s
	return s
}

// notify hands r to every subscriber without blocking.
func (l *Ledger) notify(r *TxResult) {
	l.ntfnMtx.Lock()
	defer l.ntfnMtx.Unlock()

	for id, s := range l.clients {
		select {
		case s.c <- r:
		default:
			log.Warnf("Dropping notification for height %d to "+
				"subscriber %d: queue full", r.Height, id)
		}
	}
}
