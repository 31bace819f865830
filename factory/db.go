package factory

import (
	"encoding/binary"
	"strconv"

	"github.com/abesuite/hostwallet/walletdb"
)

// ContractName is recorded in the store at instantiate.
const ContractName = "hostwallet:factory"

var (
	// Bucket names.
	mainBucketName      = []byte("main")
	executorsBucketName = []byte("executors")
	walletsBucketName   = []byte("wallets")

	// Key names (main bucket).
	contractName   = []byte("contract")
	hostCodeIDName = []byte("hostcode")
	hostChainName  = []byte("hostchain")
)

// config is the stored factory configuration.
type config struct {
	hostCodeID uint64
	hostChain  string
}

func uint64ToBytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

type putOp struct {
	b    walletdb.ReadWriteBucket
	k, v []byte
}

// createStore lays out a factory store and saves its configuration.
func createStore(ns walletdb.ReadWriteBucket, msg *InstantiateMsg) error {
	main, err := ns.CreateBucket(mainBucketName)
	if err != nil {
		str := "failed to create main bucket"
		return factoryError(ErrDatabase, str, err)
	}
	executors, err := ns.CreateBucket(executorsBucketName)
	if err != nil {
		str := "failed to create executors bucket"
		return factoryError(ErrDatabase, str, err)
	}
	if _, err := ns.CreateBucket(walletsBucketName); err != nil {
		str := "failed to create wallets bucket"
		return factoryError(ErrDatabase, str, err)
	}

	puts := []putOp{
		{main, contractName, []byte(ContractName)},
		{main, hostCodeIDName, uint64ToBytes(msg.HostCodeID)},
		{main, hostChainName, []byte(msg.HostChain)},
	}
	for chain, codeID := range msg.ExecutorCodeIDs {
		puts = append(puts, putOp{executors, []byte(chain), uint64ToBytes(codeID)})
	}
	for _, p := range puts {
		if err := p.b.Put(p.k, p.v); err != nil {
			str := "failed to store factory configuration"
			return factoryError(ErrDatabase, str, err)
		}
	}
	return nil
}

// fetchConfig loads the factory configuration.
func fetchConfig(ns walletdb.ReadBucket) (*config, error) {
	main := ns.NestedReadBucket(mainBucketName)
	if main == nil {
		str := "factory not initialized"
		return nil, factoryError(ErrNoExist, str, nil)
	}
	v := main.Get(hostCodeIDName)
	if len(v) != 8 {
		str := "host code id not stored"
		return nil, factoryError(ErrDatabase, str, nil)
	}
	return &config{
		hostCodeID: binary.LittleEndian.Uint64(v),
		hostChain:  string(main.Get(hostChainName)),
	}, nil
}

// fetchExecutorCodeID returns the executor code configured for chain.
func fetchExecutorCodeID(ns walletdb.ReadBucket, chain string) (uint64, bool) {
	v := ns.NestedReadBucket(executorsBucketName).Get([]byte(chain))
	if len(v) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(v), true
}

// fetchExecutorCodeIDs returns every configured executor code by chain.
func fetchExecutorCodeIDs(ns walletdb.ReadBucket) (map[string]uint64, error) {
	ids := make(map[string]uint64)
	err := ns.NestedReadBucket(executorsBucketName).ForEach(func(k, v []byte) error {
		if len(v) == 8 {
			ids[string(k)] = binary.LittleEndian.Uint64(v)
		}
		return nil
	})
	if err != nil {
		return nil, factoryError(ErrDatabase, "failed to read executors", err)
	}
	return ids, nil
}

// fetchWallet returns the wallet indexed under owner.
func fetchWallet(ns walletdb.ReadBucket, owner string) (string, bool) {
	v := ns.NestedReadBucket(walletsBucketName).Get([]byte(owner))
	if v == nil {
		return "", false
	}
	return string(v), true
}

// putWallet indexes wallet under owner, replacing any previous entry.
func putWallet(ns walletdb.ReadWriteBucket, owner, wallet string) error {
	bucket := ns.NestedReadWriteBucket(walletsBucketName)
	if err := bucket.Put([]byte(owner), []byte(wallet)); err != nil {
		str := "failed to index wallet of " + owner
		return factoryError(ErrDatabase, str, err)
	}
	return nil
}

// deleteWallet drops the index entry of owner.
func deleteWallet(ns walletdb.ReadWriteBucket, owner string) error {
	bucket := ns.NestedReadWriteBucket(walletsBucketName)
	if err := bucket.Delete([]byte(owner)); err != nil {
		str := "failed to drop wallet of " + owner
		return factoryError(ErrDatabase, str, err)
	}
	return nil
}

// countWallets returns the number of indexed wallets.
func countWallets(ns walletdb.ReadBucket) (uint64, error) {
	var n uint64
	err := ns.NestedReadBucket(walletsBucketName).ForEach(func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, factoryError(ErrDatabase, "failed to count wallets", err)
	}
	return n, nil
}
