package host

import (
	"encoding/binary"
	"errors"

	"github.com/abesuite/hostwallet/walletdb"
)

const (
	// LatestVersion is the most recent store layout version.
	LatestVersion = 2

	// ContractName is recorded in the store at instantiate.
	ContractName = "hostwallet:host"
)

var (
	// Bucket names.
	mainBucketName      = []byte("main")
	votesBucketName     = []byte("votes")
	executorsBucketName = []byte("executors")

	// Key names (main bucket).
	storeVersionName = []byte("storever")
	contractName     = []byte("contract")
	walletStateName  = []byte("state")
)

// maybeConvertDbError converts the passed error to an Error with an error
// code of ErrDatabase if it is not already an Error.
func maybeConvertDbError(err error) error {
	var e Error
	if errors.As(err, &e) {
		return err
	}
	return hostError(ErrDatabase, err.Error(), err)
}

// createStore lays out the buckets of a new wallet in ns.
func createStore(ns walletdb.ReadWriteBucket) error {
	if ns.NestedReadBucket(mainBucketName) != nil {
		str := "wallet already exists"
		return hostError(ErrAlreadyExists, str, nil)
	}
	for _, name := range [][]byte{mainBucketName, votesBucketName,
		executorsBucketName} {

		if _, err := ns.CreateBucket(name); err != nil {
			str := "failed to create bucket " + string(name)
			return hostError(ErrDatabase, str, err)
		}
	}
	if err := putStoreVersion(ns, LatestVersion); err != nil {
		return err
	}
	main := ns.NestedReadWriteBucket(mainBucketName)
	if err := main.Put(contractName, []byte(ContractName)); err != nil {
		str := "failed to store contract name"
		return hostError(ErrDatabase, str, err)
	}
	return nil
}

// fetchStoreVersion returns the layout version of the store.  Stores created
// before the version key existed report version 1.
func fetchStoreVersion(ns walletdb.ReadBucket) (uint32, error) {
	main := ns.NestedReadBucket(mainBucketName)
	if main == nil {
		str := "wallet does not exist"
		return 0, hostError(ErrNoExist, str, nil)
	}
	v := main.Get(storeVersionName)
	if v == nil {
		return 1, nil
	}
	if len(v) != 4 {
		str := "malformed store version"
		return 0, hostError(ErrData, str, nil)
	}
	return binary.LittleEndian.Uint32(v), nil
}

// putStoreVersion stores the layout version.
func putStoreVersion(ns walletdb.ReadWriteBucket, version uint32) error {
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], version)
	main := ns.NestedReadWriteBucket(mainBucketName)
	if err := main.Put(storeVersionName, v[:]); err != nil {
		str := "failed to store version"
		return hostError(ErrDatabase, str, err)
	}
	return nil
}

// fetchContractName returns the code name recorded at instantiate.
func fetchContractName(ns walletdb.ReadBucket) string {
	return string(ns.NestedReadBucket(mainBucketName).Get(contractName))
}

// fetchWalletState loads the wallet state.
func fetchWalletState(ns walletdb.ReadBucket) (*WalletState, error) {
	main := ns.NestedReadBucket(mainBucketName)
	if main == nil {
		str := "wallet does not exist"
		return nil, hostError(ErrNoExist, str, nil)
	}
	v := main.Get(walletStateName)
	if v == nil {
		str := "wallet state not stored"
		return nil, hostError(ErrNoExist, str, nil)
	}
	s, err := deserializeWalletState(v)
	if err != nil {
		var e Error
		if errors.As(err, &e) {
			return nil, err
		}
		str := "failed to decode wallet state"
		return nil, hostError(ErrData, str, err)
	}
	return s, nil
}

// putWalletState stores the wallet state.
func putWalletState(ns walletdb.ReadWriteBucket, s *WalletState) error {
	main := ns.NestedReadWriteBucket(mainBucketName)
	if err := main.Put(walletStateName, serializeWalletState(s)); err != nil {
		str := "failed to store wallet state"
		return hostError(ErrDatabase, str, err)
	}
	return nil
}

// voteKey returns the key of the i'th vote.
func voteKey(i uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], i)
	return k[:]
}

// fetchVotes returns the voters of the pending change in vote order.
func fetchVotes(ns walletdb.ReadBucket) ([]string, error) {
	bucket := ns.NestedReadBucket(votesBucketName)
	if bucket == nil {
		str := "votes bucket missing"
		return nil, hostError(ErrDatabase, str, nil)
	}
	var votes []string
	err := bucket.ForEach(func(_, v []byte) error {
		votes = append(votes, string(v))
		return nil
	})
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	return votes, nil
}

// putVote appends voter to the vote list and returns the new vote count.
func putVote(ns walletdb.ReadWriteBucket, voter string) (int, error) {
	votes, err := fetchVotes(ns)
	if err != nil {
		return 0, err
	}
	bucket := ns.NestedReadWriteBucket(votesBucketName)
	if err := bucket.Put(voteKey(uint32(len(votes))), []byte(voter)); err != nil {
		str := "failed to store vote"
		return 0, hostError(ErrDatabase, str, err)
	}
	return len(votes) + 1, nil
}

// resetVotes empties the vote list.
func resetVotes(ns walletdb.ReadWriteBucket) error {
	err := ns.DeleteNestedBucket(votesBucketName)
	if err != nil && !errors.Is(err, walletdb.ErrBucketNotFound) {
		str := "failed to clear votes"
		return hostError(ErrDatabase, str, err)
	}
	if _, err := ns.CreateBucket(votesBucketName); err != nil {
		str := "failed to clear votes"
		return hostError(ErrDatabase, str, err)
	}
	return nil
}

// fetchExecutor returns the executor registered for chain.
func fetchExecutor(ns walletdb.ReadBucket, chain string) (string, bool) {
	v := ns.NestedReadBucket(executorsBucketName).Get([]byte(chain))
	if v == nil {
		return "", false
	}
	return string(v), true
}

// fetchExecutors returns every registered executor keyed by chain.
func fetchExecutors(ns walletdb.ReadBucket) (map[string]string, error) {
	executors := make(map[string]string)
	bucket := ns.NestedReadBucket(executorsBucketName)
	err := bucket.ForEach(func(k, v []byte) error {
		executors[string(k)] = string(v)
		return nil
	})
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	return executors, nil
}

// putExecutor registers addr for chain unless chain already has an
// executor.
func putExecutor(ns walletdb.ReadWriteBucket, chain, addr string) error {
	bucket := ns.NestedReadWriteBucket(executorsBucketName)
	if bucket.Get([]byte(chain)) != nil {
		str := "executor already registered for chain " + chain
		return hostError(ErrChainAlreadyRegistered, str, nil)
	}
	if err := bucket.Put([]byte(chain), []byte(addr)); err != nil {
		str := "failed to store executor for chain " + chain
		return hostError(ErrDatabase, str, err)
	}
	return nil
}
