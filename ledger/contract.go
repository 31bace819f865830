package ledger

import (
	"encoding/json"

	"github.com/abesuite/hostwallet/walletdb"
	"github.com/abesuite/hostwallet/walletdb/migration"
)

// API exposes the host environment helpers a contract may use.
type API interface {
	// AddrValidate returns an error if addr is not a well formed address.
	AddrValidate(addr string) error
}

// Context is handed to state changing entry points.  Store is the contract's
// own namespace; writes to it are committed only if the whole call succeeds.
type Context struct {
	Env   Env
	Store walletdb.ReadWriteBucket
	API   API
}

// QueryContext is handed to the query entry point.
type QueryContext struct {
	Env   Env
	Store walletdb.ReadBucket
	API   API
}

// Contract is the code behind a stored code id.  Implementations keep no
// state of their own; everything lives in the store of the context.
type Contract interface {
	Instantiate(ctx *Context, info MessageInfo, msg json.RawMessage) (*Response, error)
	Execute(ctx *Context, info MessageInfo, msg json.RawMessage) (*Response, error)
	Query(ctx *QueryContext, msg json.RawMessage) (json.RawMessage, error)
}

// ReplyHandler is implemented by contracts that emit sub-messages with
// ReplyOnSuccess.
type ReplyHandler interface {
	Reply(ctx *Context, reply Reply) (*Response, error)
}

// Migrator is implemented by contracts whose store layout is versioned.  The
// ledger upgrades every instance of such a code when it is opened.
type Migrator interface {
	MigrationManager(ns walletdb.ReadWriteBucket) migration.Manager
}
