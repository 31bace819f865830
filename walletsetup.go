package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abesuite/hostwallet/executor"
	"github.com/abesuite/hostwallet/factory"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/internal/prompt"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/walletdb"
	_ "github.com/abesuite/hostwallet/walletdb/bdb"
)

// errCreateAborted is returned when the user declines to create the ledger.
var errCreateAborted = errors.New("ledger creation aborted")

// networkDir returns the directory name of a chain directory to hold ledger
// files.
func networkDir(dataDir string, chainID string) string {
	return filepath.Join(dataDir, chainID)
}

// codeIDs holds the code ids of the contracts shipped with hostwallet.
type codeIDs struct {
	host     uint64
	executor uint64
	factory  uint64
}

// loadCodes stores the contract implementations in l.  Code ids are
// persisted by the ledger, so every start yields the same ids.
func loadCodes(l *ledger.Ledger) (*codeIDs, error) {
	var (
		ids codeIDs
		err error
	)
	if ids.host, err = l.StoreCode(host.ContractName, host.Contract{}); err != nil {
		return nil, err
	}
	if ids.executor, err = l.StoreCode(executor.ContractName, executor.Contract{}); err != nil {
		return nil, err
	}
	if ids.factory, err = l.StoreCode(factory.ContractName, factory.Contract{}); err != nil {
		return nil, err
	}
	return &ids, nil
}

// deployFactory instantiates the wallet factory on behalf of deployer.  Every
// chain in executorChains gets the executor code as its template.
func deployFactory(l *ledger.Ledger, ids *codeIDs, deployer, hostChain string,
	executorChains []string) (string, error) {

	executors := make(map[string]uint64, len(executorChains))
	for _, chain := range executorChains {
		executors[chain] = ids.executor
	}
	msg, err := json.Marshal(&factory.InstantiateMsg{
		HostCodeID:      ids.host,
		HostChain:       hostChain,
		ExecutorCodeIDs: executors,
	})
	if err != nil {
		return "", err
	}
	res, err := l.Instantiate(deployer, ids.factory, msg, nil,
		"hostwallet factory", deployer)
	if err != nil {
		return "", err
	}
	return res.ContractAddress, nil
}

// createLedger creates a new ledger database for the configured chain and
// deploys the wallet factory into it.  With --create the user is prompted for
// the deployer and executor chains, otherwise the configured values are used.
func createLedger(cfg *config) error {
	netDir := networkDir(cfg.AppDataDir.Value, cfg.ChainID)
	dbPath := filepath.Join(netDir, walletDbName)

	deployer := cfg.Deployer.Address
	executorChains := cfg.ExecutorChains
	if cfg.Create {
		reader := bufio.NewReader(os.Stdin)

		var err error
		deployer, err = prompt.Address(reader, "Enter the account "+
			"deploying the wallet factory", deployer)
		if err != nil {
			return err
		}
		executorChains, err = prompt.Chains(reader, "Enter the chains "+
			"executors may be created for", executorChains)
		if err != nil {
			return err
		}

		fmt.Printf("Ledger %s: wallets live on %s, executors on %s.\n",
			cfg.ChainID, cfg.HostChain, strings.Join(executorChains, ","))
		ok, err := prompt.Confirm(reader, "Create the ledger?", true)
		if err != nil {
			return err
		}
		if !ok {
			return errCreateAborted
		}
	}

	if err := checkCreateDir(netDir); err != nil {
		return err
	}

	fmt.Println("Creating the ledger...")
	db, err := walletdb.Create("bdb", dbPath, true)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := ledger.Create(db, cfg.ChainID, nil); err != nil {
		return err
	}
	l, err := ledger.Open(&ledger.Config{DB: db})
	if err != nil {
		return err
	}
	defer l.Close()

	ids, err := loadCodes(l)
	if err != nil {
		return err
	}
	addr, err := deployFactory(l, ids, deployer, cfg.HostChain, executorChains)
	if err != nil {
		return err
	}

	fmt.Printf("The wallet factory has been deployed at %s.\n", addr)
	fmt.Println("The ledger has been created successfully.")
	return nil
}

// checkCreateDir checks that the path exists and is a directory.
// If path does not exist, it is created.
func checkCreateDir(path string) error {
	if fi, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			// Attempt data directory creation
			if err = os.MkdirAll(path, 0700); err != nil {
				return fmt.Errorf("cannot create directory: %s", err)
			}
		} else {
			return fmt.Errorf("error checking directory: %s", err)
		}
	} else {
		if !fi.IsDir() {
			return fmt.Errorf("path '%s' is not a directory", path)
		}
	}

	return nil
}
