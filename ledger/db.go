package ledger

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/abesuite/hostwallet/walletdb"
)

const (
	// LatestVersion is the most recent ledger database version.
	LatestVersion = 1
)

var (
	// ledgerNamespaceKey is the top level bucket holding everything the
	// ledger stores.
	ledgerNamespaceKey = []byte("ledger")

	// Bucket names.
	mainBucketName      = []byte("main")
	codesBucketName     = []byte("codes")
	contractsBucketName = []byte("contracts")
	stateBucketName     = []byte("state")

	// Key names (main bucket).
	ledgerVersionName = []byte("ledgerver")
	createDateName    = []byte("created")
	heightName        = []byte("height")
	chainIDName       = []byte("chainid")
)

// maybeConvertDbError converts the passed error to a LedgerError with an
// error code of ErrDatabase if it is neither a LedgerError nor an error
// returned by contract code.
func maybeConvertDbError(err error) error {
	var le LedgerError
	if errors.As(err, &le) {
		return err
	}
	var ce *ContractError
	if errors.As(err, &ce) {
		return err
	}
	return ledgerError(ErrDatabase, err.Error(), err)
}

// uint32ToBytes converts a 32 bit unsigned integer into a 4-byte slice in
// little-endian order.
func uint32ToBytes(number uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, number)
	return buf
}

// uint64ToBytes converts a 64 bit unsigned integer into a 8-byte slice in
// little-endian order.
func uint64ToBytes(number uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, number)
	return buf
}

// putString appends s to buf as <4 byte size><bytes>.
func putString(buf []byte, s string) []byte {
	buf = append(buf, uint32ToBytes(uint32(len(s)))...)
	return append(buf, s...)
}

// readString reads a string written by putString.
func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, errors.New("short string size")
	}
	size := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < size {
		return "", nil, errors.New("short string")
	}
	return string(buf[:size]), buf[size:], nil
}

// ContractRecord is the ledger's bookkeeping entry for a contract instance.
type ContractRecord struct {
	Address  string `json:"address"`
	CodeID   uint64 `json:"code_id"`
	CodeName string `json:"code_name"`
	Creator  string `json:"creator"`
	Admin    string `json:"admin,omitempty"`
	Label    string `json:"label"`
	Created  uint64 `json:"created"`
}

// serializeContractRecord returns the serialization of a contract record.
// The address is the key and is not included.
func serializeContractRecord(r *ContractRecord) []byte {
	// The serialized format is:
	//   <codeid><created><creator><admin><label>
	//
	// 8 bytes code id + 8 bytes creation height + 3 length prefixed
	// strings
	buf := make([]byte, 0, 16+12+len(r.Creator)+len(r.Admin)+len(r.Label))
	buf = append(buf, uint64ToBytes(r.CodeID)...)
	buf = append(buf, uint64ToBytes(r.Created)...)
	buf = putString(buf, r.Creator)
	buf = putString(buf, r.Admin)
	buf = putString(buf, r.Label)
	return buf
}

// deserializeContractRecord decodes a record stored under addr.
func deserializeContractRecord(addr string, v []byte) (*ContractRecord, error) {
	if len(v) < 16 {
		str := "malformed contract record for " + addr
		return nil, ledgerError(ErrDatabase, str, nil)
	}
	r := &ContractRecord{
		Address: addr,
		CodeID:  binary.LittleEndian.Uint64(v[:8]),
		Created: binary.LittleEndian.Uint64(v[8:16]),
	}
	rest := v[16:]
	var err error
	for _, s := range []*string{&r.Creator, &r.Admin, &r.Label} {
		*s, rest, err = readString(rest)
		if err != nil {
			str := "malformed contract record for " + addr
			return nil, ledgerError(ErrDatabase, str, err)
		}
	}
	return r, nil
}

// createLedgerNS creates the buckets of a fresh ledger.
func createLedgerNS(ns walletdb.ReadWriteBucket, chainID string, now time.Time) error {
	mainBucket, err := ns.CreateBucket(mainBucketName)
	if err != nil {
		str := "failed to create main bucket"
		return ledgerError(ErrDatabase, str, err)
	}
	for _, name := range [][]byte{codesBucketName, contractsBucketName,
		stateBucketName} {

		if _, err := ns.CreateBucket(name); err != nil {
			str := "failed to create bucket " + string(name)
			return ledgerError(ErrDatabase, str, err)
		}
	}

	if err := putLedgerVersion(ns, LatestVersion); err != nil {
		return err
	}
	err = mainBucket.Put(createDateName, uint64ToBytes(uint64(now.Unix())))
	if err != nil {
		str := "failed to store creation time"
		return ledgerError(ErrDatabase, str, err)
	}
	if err := mainBucket.Put(chainIDName, []byte(chainID)); err != nil {
		str := "failed to store chain id"
		return ledgerError(ErrDatabase, str, err)
	}
	return putHeight(ns, 0)
}

// fetchLedgerVersion fetches the current ledger version from the database.
func fetchLedgerVersion(ns walletdb.ReadBucket) (uint32, error) {
	mainBucket := ns.NestedReadBucket(mainBucketName)
	verBytes := mainBucket.Get(ledgerVersionName)
	if verBytes == nil {
		str := "required version number not stored in database"
		return 0, ledgerError(ErrDatabase, str, nil)
	}
	return binary.LittleEndian.Uint32(verBytes), nil
}

// putLedgerVersion stores the provided version to the database.
func putLedgerVersion(ns walletdb.ReadWriteBucket, version uint32) error {
	bucket := ns.NestedReadWriteBucket(mainBucketName)
	err := bucket.Put(ledgerVersionName, uint32ToBytes(version))
	if err != nil {
		str := "failed to store version"
		return ledgerError(ErrDatabase, str, err)
	}
	return nil
}

// fetchChainID returns the chain id the ledger was created with.
func fetchChainID(ns walletdb.ReadBucket) string {
	return string(ns.NestedReadBucket(mainBucketName).Get(chainIDName))
}

// fetchHeight returns the height of the last committed call.
func fetchHeight(ns walletdb.ReadBucket) (uint64, error) {
	v := ns.NestedReadBucket(mainBucketName).Get(heightName)
	if len(v) != 8 {
		str := "block height not stored in database"
		return 0, ledgerError(ErrDatabase, str, nil)
	}
	return binary.LittleEndian.Uint64(v), nil
}

// putHeight stores the height of the last committed call.
func putHeight(ns walletdb.ReadWriteBucket, height uint64) error {
	bucket := ns.NestedReadWriteBucket(mainBucketName)
	if err := bucket.Put(heightName, uint64ToBytes(height)); err != nil {
		str := "failed to store block height"
		return ledgerError(ErrDatabase, str, err)
	}
	return nil
}

// fetchCodeID looks up the id stored for a code name.
func fetchCodeID(ns walletdb.ReadBucket, name string) (uint64, bool) {
	v := ns.NestedReadBucket(codesBucketName).Get([]byte(name))
	if len(v) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(v), true
}

// putCode assigns the next code id to name.
func putCode(ns walletdb.ReadWriteBucket, name string) (uint64, error) {
	bucket := ns.NestedReadWriteBucket(codesBucketName)
	id, err := bucket.NextSequence()
	if err != nil {
		str := "failed to allocate code id"
		return 0, ledgerError(ErrDatabase, str, err)
	}
	if err := bucket.Put([]byte(name), uint64ToBytes(id)); err != nil {
		str := "failed to store code " + name
		return 0, ledgerError(ErrDatabase, str, err)
	}
	return id, nil
}

// fetchContractRecord loads the record of the contract at addr.
func fetchContractRecord(ns walletdb.ReadBucket, addr string) (*ContractRecord, error) {
	v := ns.NestedReadBucket(contractsBucketName).Get([]byte(addr))
	if v == nil {
		str := "no contract at address " + addr
		return nil, ledgerError(ErrNoContract, str, nil)
	}
	return deserializeContractRecord(addr, v)
}

// forEachContractRecord calls f with every stored contract record in address
// order.
func forEachContractRecord(ns walletdb.ReadBucket,
	f func(*ContractRecord) error) error {

	bucket := ns.NestedReadBucket(contractsBucketName)
	return bucket.ForEach(func(k, v []byte) error {
		r, err := deserializeContractRecord(string(k), v)
		if err != nil {
			return err
		}
		return f(r)
	})
}

// nextInstance returns the next contract instance sequence number.
func nextInstance(ns walletdb.ReadWriteBucket) (uint64, error) {
	seq, err := ns.NestedReadWriteBucket(contractsBucketName).NextSequence()
	if err != nil {
		str := "failed to allocate contract instance"
		return 0, ledgerError(ErrDatabase, str, err)
	}
	return seq, nil
}

// putContract stores a new contract record and creates its state bucket.
func putContract(ns walletdb.ReadWriteBucket, r *ContractRecord) (walletdb.ReadWriteBucket, error) {
	key := []byte(r.Address)
	bucket := ns.NestedReadWriteBucket(contractsBucketName)
	if bucket.Get(key) != nil {
		str := "contract already exists at " + r.Address
		return nil, ledgerError(ErrDatabase, str, nil)
	}
	if err := bucket.Put(key, serializeContractRecord(r)); err != nil {
		str := "failed to store contract " + r.Address
		return nil, ledgerError(ErrDatabase, str, err)
	}
	store, err := ns.NestedReadWriteBucket(stateBucketName).CreateBucket(key)
	if err != nil {
		str := "failed to create store for " + r.Address
		return nil, ledgerError(ErrDatabase, str, err)
	}
	return store, nil
}

// contractStore returns the writable store of the contract at addr.
func contractStore(ns walletdb.ReadWriteBucket, addr string) walletdb.ReadWriteBucket {
	return ns.NestedReadWriteBucket(stateBucketName).
		NestedReadWriteBucket([]byte(addr))
}

// contractReadStore returns the read only store of the contract at addr.
func contractReadStore(ns walletdb.ReadBucket, addr string) walletdb.ReadBucket {
	return ns.NestedReadBucket(stateBucketName).NestedReadBucket([]byte(addr))
}
