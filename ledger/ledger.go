package ledger

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/abesuite/hostwallet/walletdb"
	"github.com/abesuite/hostwallet/walletdb/migration"
	"github.com/lightningnetwork/lnd/clock"
)

// code is a stored contract implementation.
type code struct {
	id   uint64
	name string
	impl Contract
}

// CodeInfo describes a stored code.
type CodeInfo struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Config holds the dependencies of a Ledger.
type Config struct {
	// DB is the database the ledger lives in.  It must have been
	// prepared with Create.
	DB walletdb.DB

	// Clock provides block times.  Defaults to the wall clock.
	Clock clock.Clock
}

// Ledger runs contract code against a walletdb database.  Every top level
// call is executed inside a single read-write transaction, so either all of
// its effects, including those of nested sub-messages, are committed or none
// are.
type Ledger struct {
	db      walletdb.DB
	clock   clock.Clock
	chainID string

	// mtx serializes state changing calls.  bbolt already allows a single
	// writer; holding mtx also keeps block heights and notifications in
	// commit order.
	mtx sync.Mutex

	codesMtx sync.RWMutex
	codes    map[uint64]*code

	ntfnMtx sync.Mutex
	clients map[uint64]*Subscription
	nextID  uint64
	closed  bool
}

// Create prepares db for a new ledger on the given chain.  It returns a
// LedgerError with ErrDatabase if the ledger already exists.
func Create(db walletdb.DB, chainID string, clk clock.Clock) error {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		if tx.ReadWriteBucket(ledgerNamespaceKey) != nil {
			str := "ledger already exists"
			return ledgerError(ErrDatabase, str, nil)
		}
		ns, err := tx.CreateTopLevelBucket(ledgerNamespaceKey)
		if err != nil {
			return maybeConvertDbError(err)
		}
		return createLedgerNS(ns, chainID, clk.Now())
	})
}

// Exists reports whether db holds a ledger.
func Exists(db walletdb.DB) (bool, error) {
	var exists bool
	err := walletdb.View(db, func(tx walletdb.ReadTx) error {
		exists = tx.ReadBucket(ledgerNamespaceKey) != nil
		return nil
	})
	return exists, err
}

// Open loads the ledger stored in cfg.DB, upgrading its layout if needed.
func Open(cfg *Config) (*Ledger, error) {
	l := &Ledger{
		db:      cfg.DB,
		clock:   cfg.Clock,
		codes:   make(map[uint64]*code),
		clients: make(map[uint64]*Subscription),
	}
	if l.clock == nil {
		l.clock = clock.NewDefaultClock()
	}

	var height uint64
	err := walletdb.Update(l.db, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(ledgerNamespaceKey)
		if ns == nil {
			str := "ledger does not exist"
			return ledgerError(ErrDatabase, str, nil)
		}
		if err := migration.Upgrade(&MigrationManager{ns: ns}); err != nil {
			return err
		}
		l.chainID = fetchChainID(ns)

		var err error
		height, err = fetchHeight(ns)
		return err
	})
	if err != nil {
		return nil, maybeConvertDbError(err)
	}

	log.Infof("Opened ledger for chain %s at height %d", l.chainID, height)
	return l, nil
}

// ChainID returns the id of the chain the ledger was created for.
func (l *Ledger) ChainID() string {
	return l.chainID
}

// StoreCode registers impl under name and returns its code id.  Ids are
// persisted, so storing the same name after a restart returns the same id.
// Existing instances of a code implementing Migrator are upgraded here.
func (l *Ledger) StoreCode(name string, impl Contract) (uint64, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var id uint64
	err := walletdb.Update(l.db, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(ledgerNamespaceKey)

		var ok bool
		id, ok = fetchCodeID(ns, name)
		if !ok {
			var err error
			id, err = putCode(ns, name)
			return err
		}

		l.codesMtx.RLock()
		_, loaded := l.codes[id]
		l.codesMtx.RUnlock()
		if loaded {
			str := "code " + name + " is already loaded"
			return ledgerError(ErrCodeExists, str, nil)
		}

		migrator, ok := impl.(Migrator)
		if !ok {
			return nil
		}
		return forEachContractRecord(ns, func(r *ContractRecord) error {
			if r.CodeID != id {
				return nil
			}
			store := contractStore(ns, r.Address)
			return migration.Upgrade(migrator.MigrationManager(store))
		})
	})
	if err != nil {
		return 0, maybeConvertDbError(err)
	}

	l.codesMtx.Lock()
	l.codes[id] = &code{id: id, name: name, impl: impl}
	l.codesMtx.Unlock()

	log.Debugf("Stored code %s with id %d", name, id)
	return id, nil
}

// lookupCode returns the implementation behind a code id.
func (l *Ledger) lookupCode(id uint64) (*code, error) {
	l.codesMtx.RLock()
	defer l.codesMtx.RUnlock()

	c, ok := l.codes[id]
	if !ok {
		str := "unknown code id"
		return nil, ledgerError(ErrUnknownCode, str, nil)
	}
	return c, nil
}

// Codes returns the loaded codes ordered by id.
func (l *Ledger) Codes() []CodeInfo {
	l.codesMtx.RLock()
	defer l.codesMtx.RUnlock()

	infos := make([]CodeInfo, 0, len(l.codes))
	for _, c := range l.codes {
		infos = append(infos, CodeInfo{ID: c.id, Name: c.name})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Instantiate creates a new instance of codeID on behalf of sender.
func (l *Ledger) Instantiate(sender string, codeID uint64, msg json.RawMessage,
	funds Coins, label, admin string) (*TxResult, error) {

	m := &WasmInstantiate{
		Admin:  admin,
		CodeID: codeID,
		Msg:    msg,
		Funds:  funds,
		Label:  label,
	}
	return l.run(sender, func(e *callExec) (string, *SubMsgResponse, error) {
		return e.instantiate(sender, m)
	})
}

// Execute calls the execute entry point of the contract at addr on behalf of
// sender.
func (l *Ledger) Execute(sender, addr string, msg json.RawMessage,
	funds Coins) (*TxResult, error) {

	m := &WasmExecute{ContractAddr: addr, Msg: msg, Funds: funds}
	return l.run(sender, func(e *callExec) (string, *SubMsgResponse, error) {
		res, err := e.execute(sender, m)
		return addr, res, err
	})
}

// run executes a top level call in a fresh read-write transaction.
func (l *Ledger) run(sender string,
	f func(e *callExec) (string, *SubMsgResponse, error)) (*TxResult, error) {

	if err := ValidateAddress(sender); err != nil {
		return nil, err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	var result *TxResult
	err := walletdb.Update(l.db, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(ledgerNamespaceKey)
		height, err := fetchHeight(ns)
		if err != nil {
			return err
		}
		e := &callExec{
			l:  l,
			ns: ns,
			block: BlockInfo{
				Height:  height + 1,
				Time:    l.clock.Now().UTC(),
				ChainID: l.chainID,
			},
		}

		addr, res, err := f(e)
		if err != nil {
			return err
		}
		if err := putHeight(ns, e.block.Height); err != nil {
			return err
		}

		result = &TxResult{
			Height:          e.block.Height,
			Time:            e.block.Time,
			Sender:          sender,
			ContractAddress: addr,
			Events:          res.Events,
			Data:            res.Data,
		}
		tx.OnCommit(func() {
			l.notify(result)
		})
		return nil
	})
	if err != nil {
		log.Debugf("Call from %s failed: %v", sender, err)
		return nil, maybeConvertDbError(err)
	}

	log.Debugf("Committed call from %s at height %d (%d events)", sender,
		result.Height, len(result.Events))
	return result, nil
}

// Query runs the query entry point of the contract at addr against the last
// committed state.
func (l *Ledger) Query(addr string, msg json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := walletdb.View(l.db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(ledgerNamespaceKey)
		r, err := fetchContractRecord(ns, addr)
		if err != nil {
			return err
		}
		c, err := l.lookupCode(r.CodeID)
		if err != nil {
			return err
		}
		height, err := fetchHeight(ns)
		if err != nil {
			return err
		}

		ctx := &QueryContext{
			Env: Env{
				Block: BlockInfo{
					Height:  height,
					Time:    l.clock.Now().UTC(),
					ChainID: l.chainID,
				},
				Contract: ContractInfo{Address: addr},
			},
			Store: contractReadStore(ns, addr),
			API:   DefaultAPI,
		}
		out, err = c.impl.Query(ctx, msg)
		if err != nil {
			return wrapContractErr(addr, err)
		}
		return nil
	})
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	return out, nil
}

// ContractInfo returns the record of the contract at addr.
func (l *Ledger) ContractInfo(addr string) (*ContractRecord, error) {
	var r *ContractRecord
	err := walletdb.View(l.db, func(tx walletdb.ReadTx) error {
		var err error
		r, err = fetchContractRecord(tx.ReadBucket(ledgerNamespaceKey), addr)
		return err
	})
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	l.fillCodeName(r)
	return r, nil
}

// Contracts returns the records of all contracts, optionally restricted to a
// single code id when codeID is non-zero.
func (l *Ledger) Contracts(codeID uint64) ([]*ContractRecord, error) {
	var records []*ContractRecord
	err := walletdb.View(l.db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(ledgerNamespaceKey)
		return forEachContractRecord(ns, func(r *ContractRecord) error {
			if codeID != 0 && r.CodeID != codeID {
				return nil
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	for _, r := range records {
		l.fillCodeName(r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Created < records[j].Created
	})
	return records, nil
}

func (l *Ledger) fillCodeName(r *ContractRecord) {
	if c, err := l.lookupCode(r.CodeID); err == nil {
		r.CodeName = c.name
	}
}

// Height returns the height of the last committed call.
func (l *Ledger) Height() (uint64, error) {
	var height uint64
	err := walletdb.View(l.db, func(tx walletdb.ReadTx) error {
		var err error
		height, err = fetchHeight(tx.ReadBucket(ledgerNamespaceKey))
		return err
	})
	return height, err
}

// Now returns the time the next call would see as its block time.
func (l *Ledger) Now() time.Time {
	return l.clock.Now().UTC()
}

// Backup writes a consistent snapshot of the whole database to w.
func (l *Ledger) Backup(w io.Writer) error {
	return l.db.Copy(w)
}

// Close stops delivering notifications.  The database is owned by the
// caller and is left open.
func (l *Ledger) Close() {
	l.ntfnMtx.Lock()
	defer l.ntfnMtx.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for id, s := range l.clients {
		close(s.c)
		delete(l.clients, id)
	}
}
