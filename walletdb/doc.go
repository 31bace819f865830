/*
Package walletdb provides a namespaced database interface for the contract
ledger.

A database is a set of top-level buckets.  The ledger keeps its own metadata
under one of them and gives every contract instance a nested bucket of its
own, so a contract only ever sees the namespace it owns.

All access happens inside transactions.  View runs a read-only closure and
Update runs a read/write closure which commits when it returns nil and rolls
back otherwise.  Every call into a contract is executed inside exactly one
Update, which is what makes a failed call leave no trace: its state writes,
and the writes of any contract it messaged, are discarded together.

Backends register themselves as drivers.  The bdb driver, backed by bbolt,
is the only one shipped and is selected with the name "bdb":

	db, err := walletdb.Create("bdb", "ledger.db", true)
*/
package walletdb
