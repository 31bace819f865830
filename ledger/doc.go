/*
Package ledger provides a small contract runtime on top of walletdb.

Contracts are Go implementations of the Contract interface registered under a
code name with StoreCode.  Instances are created with Instantiate and driven
with Execute and Query.  Each instance owns a private bucket that the runtime
hands to its entry points as the contract store.

A top level call runs in one read-write database transaction.  Messages a
contract returns in its Response are dispatched in order within that same
transaction, and a sub-message marked ReplyOnSuccess calls back into the
emitting contract with the result.  If any contract in the chain returns an
error, the transaction is rolled back and no effect of the call is visible,
which gives callers all-or-nothing semantics without savepoints.

Every committed call advances the block height by one and is delivered to
subscribers registered with Subscribe.
*/
package ledger
