package host

import (
	"github.com/abesuite/hostwallet/walletdb"
	"github.com/abesuite/hostwallet/walletdb/migration"
)

// versions is a list of the different store layouts. The last entry should
// reflect the latest layout. If a store happens to be at a version number
// lower than the latest, migrations will be performed in order to catch it
// up.
var versions = []migration.Version{
	{
		Number:    1,
		Migration: nil,
	},
	{
		Number:    2,
		Migration: addExecutorsBucket,
	},
}

// MigrationManager is an implementation of the migration.Manager interface
// that will be used to handle migrations of a wallet store.
type MigrationManager struct {
	ns walletdb.ReadWriteBucket
}

// A compile-time assertion to ensure that MigrationManager implements the
// migration.Manager interface.
var _ migration.Manager = (*MigrationManager)(nil)

// NewMigrationManager creates a new migration manager for the wallet store
// rooted at ns.
func NewMigrationManager(ns walletdb.ReadWriteBucket) *MigrationManager {
	return &MigrationManager{ns: ns}
}

// Name returns the name of the service we'll be attempting to upgrade.
//
// NOTE: This method is part of the migration.Manager interface.
func (m *MigrationManager) Name() string {
	return "wallet store"
}

// Namespace returns the top-level bucket of the service.
//
// NOTE: This method is part of the migration.Manager interface.
func (m *MigrationManager) Namespace() walletdb.ReadWriteBucket {
	return m.ns
}

// CurrentVersion returns the current version of the service's database.
//
// NOTE: This method is part of the migration.Manager interface.
func (m *MigrationManager) CurrentVersion(ns walletdb.ReadBucket) (uint32, error) {
	if ns == nil {
		ns = m.ns
	}
	return fetchStoreVersion(ns)
}

// SetVersion sets the version of the service's database.
//
// NOTE: This method is part of the migration.Manager interface.
func (m *MigrationManager) SetVersion(ns walletdb.ReadWriteBucket,
	version uint32) error {

	if ns == nil {
		ns = m.ns
	}
	return putStoreVersion(ns, version)
}

// Versions returns all of the available database versions of the service.
//
// NOTE: This method is part of the migration.Manager interface.
func (m *MigrationManager) Versions() []migration.Version {
	return versions
}

// addExecutorsBucket upgrades a version 1 store, which predates the executor
// registry and the recorded contract name.
func addExecutorsBucket(ns walletdb.ReadWriteBucket) error {
	if _, err := ns.CreateBucketIfNotExists(executorsBucketName); err != nil {
		return maybeConvertDbError(err)
	}
	main := ns.NestedReadWriteBucket(mainBucketName)
	if main.Get(contractName) != nil {
		return nil
	}
	if err := main.Put(contractName, []byte(ContractName)); err != nil {
		return maybeConvertDbError(err)
	}
	return nil
}
