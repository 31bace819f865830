/*
Package factory implements the contract that creates wallets and keeps the
index from owners to their wallet.

A wallet is created by a create_wallet message.  The factory instantiates
the wallet code with the sender as owner and itself as master, and learns the
new wallet's address from the reply to that instantiate.  The reply data is a
host.InstantiateData; when it is missing the host_address and owner
attributes of the wallet's instantiate event are used instead.

Wallets tell their master about ownership changes with update_owner, which
moves the index entry from the old owner to the new one.  Only the wallet
indexed under the old owner may do so.

Executors are created with create_executor for the factory's own chain only.
Each executor registers itself with its wallet as part of its own
instantiate.
*/
package factory
