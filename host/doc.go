/*
Package host implements the wallet contract: a guarded execution proxy
holding the authorization state of a single owner.

Every state changing operation other than executor registration carries a
caller supplied nonce that must exceed the stored watermark.  The owner
manages a recovery pool and an approval pool.  Recovery pool members can move
the wallet to a new owner through social recovery, and the owner can hand it
over through an ownership transfer approved by the pool.  Executors register
themselves per chain and receive the actions the owner dispatches.

The contract runs on the ledger package.  A failing operation leaves no
trace, the nonce included, because the ledger rolls back the whole call.
*/
package host
