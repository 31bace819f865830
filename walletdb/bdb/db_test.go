package bdb_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/abesuite/hostwallet/walletdb"
	_ "github.com/abesuite/hostwallet/walletdb/bdb"
	"github.com/stretchr/testify/require"
)

var (
	testNs  = []byte("ns")
	testKey = []byte("key")
)

func createTestDB(t *testing.T) walletdb.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := walletdb.Create("bdb", dbPath, true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMissing(t *testing.T) {
	_, err := walletdb.Open("bdb", filepath.Join(t.TempDir(), "nope.db"), true)
	require.Equal(t, walletdb.ErrDbDoesNotExist, err)
}

func TestBadArgs(t *testing.T) {
	_, err := walletdb.Create("bdb", "only-a-path")
	require.Error(t, err)

	_, err = walletdb.Create("bdb", 1, true)
	require.Error(t, err)

	_, err = walletdb.Create("unknown", "x", true)
	require.Equal(t, walletdb.ErrDbUnknownType, err)
}

func TestUpdateCommitsAndRollsBack(t *testing.T) {
	db := createTestDB(t)

	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		ns, err := tx.CreateTopLevelBucket(testNs)
		if err != nil {
			return err
		}
		return ns.Put(testKey, []byte("v1"))
	})
	require.NoError(t, err)

	errAbort := errors.New("abort")
	err = walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(testNs)
		if err := ns.Put(testKey, []byte("v2")); err != nil {
			return err
		}
		if _, err := ns.CreateBucket([]byte("child")); err != nil {
			return err
		}
		return errAbort
	})
	require.Equal(t, errAbort, err)

	err = walletdb.View(db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(testNs)
		require.Equal(t, []byte("v1"), ns.Get(testKey))
		require.Nil(t, ns.NestedReadBucket([]byte("child")))
		return nil
	})
	require.NoError(t, err)
}

func TestNestedBuckets(t *testing.T) {
	db := createTestDB(t)

	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		ns, err := tx.CreateTopLevelBucket(testNs)
		require.NoError(t, err)

		child, err := ns.CreateBucket([]byte("child"))
		require.NoError(t, err)
		require.NoError(t, child.Put([]byte("a"), []byte("1")))

		_, err = ns.CreateBucket([]byte("child"))
		require.Equal(t, walletdb.ErrBucketExists, err)

		seq, err := child.NextSequence()
		require.NoError(t, err)
		require.Equal(t, uint64(1), seq)
		require.Equal(t, uint64(1), child.Sequence())

		require.NoError(t, ns.DeleteNestedBucket([]byte("child")))
		require.Nil(t, ns.NestedReadWriteBucket([]byte("child")))

		err = ns.DeleteNestedBucket([]byte("child"))
		require.Equal(t, walletdb.ErrBucketNotFound, err)
		return nil
	})
	require.NoError(t, err)
}

func TestOnCommitAndCopy(t *testing.T) {
	db := createTestDB(t)

	committed := false
	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		tx.OnCommit(func() { committed = true })
		ns, err := tx.CreateTopLevelBucket(testNs)
		if err != nil {
			return err
		}
		return ns.Put(testKey, []byte("v"))
	})
	require.NoError(t, err)
	require.True(t, committed)

	var buf bytes.Buffer
	require.NoError(t, db.Copy(&buf))
	require.NotZero(t, buf.Len())

	var names [][]byte
	err = walletdb.View(db, func(tx walletdb.ReadTx) error {
		return tx.ForEachBucket(func(key []byte) error {
			names = append(names, append([]byte(nil), key...))
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{testNs}, names)
}
