package main

import (
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"

	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/walletdb"
	_ "github.com/abesuite/hostwallet/walletdb/bdb"
)

var (
	cfg *config
)

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Work around defer not working after os.Exit.
	if err := walletMain(); err != nil {
		os.Exit(1)
	}
}

// walletMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the program
// can be exited with an error exit status.
func walletMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	dbPath := filepath.Join(networkDir(cfg.AppDataDir.Value, cfg.ChainID),
		walletDbName)
	if cfg.Create || cfg.NonInteractiveCreate {
		if _, err := os.Stat(dbPath); err == nil {
			err := fmt.Errorf("the ledger database file `%v` "+
				"already exists", dbPath)
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		if err := createLedger(cfg); err != nil {
			fmt.Fprintln(os.Stderr, "Unable to create ledger:", err)
			return err
		}

		// Created successfully, so exit now with success.
		os.Exit(0)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		err := fmt.Errorf("the ledger does not exist.  Run with the " +
			"--create option to initialize and create it")
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	log.Infof("Version %s", version())

	if cfg.Profile != "" {
		go func() {
			listenAddr := net.JoinHostPort("", cfg.Profile)
			log.Infof("Profile server listening on %s", listenAddr)
			profileRedirect := http.RedirectHandler("/debug/pprof",
				http.StatusSeeOther)
			http.Handle("/", profileRedirect)
			log.Errorf("%v", http.ListenAndServe(listenAddr, nil))
		}()
	}

	db, err := walletdb.Open("bdb", dbPath, true)
	if err != nil {
		log.Errorf("Unable to open ledger database: %v", err)
		return err
	}
	l, err := ledger.Open(&ledger.Config{DB: db})
	if err != nil {
		log.Errorf("Unable to open ledger: %v", err)
		db.Close()
		return err
	}
	ids, err := loadCodes(l)
	if err != nil {
		log.Errorf("Unable to load contract code: %v", err)
		l.Close()
		db.Close()
		return err
	}
	log.Infof("Contract code loaded (host %d, executor %d, factory %d)",
		ids.host, ids.executor, ids.factory)

	// Create and start the RPC servers to serve ledger client connections.
	rpcs, legacyRPCServer, err := startRPCServers(cfg, l)
	if err != nil {
		log.Errorf("Unable to create RPC servers: %v", err)
		l.Close()
		db.Close()
		return err
	}

	// Add interrupt handlers to shutdown the various process components
	// before exiting.  Interrupt handlers run in LIFO order, so the
	// ledger is closed last.
	addInterruptHandler(func() {
		l.Close()
		if err := db.Close(); err != nil {
			log.Errorf("Unable to close ledger database: %v", err)
		} else {
			log.Info("Ledger database closed")
		}
	})
	if rpcs != nil {
		addInterruptHandler(func() {
			log.Warn("Stopping gRPC server...")
			rpcs.Stop()
			log.Info("gRPC server shutdown")
		})
	}
	if legacyRPCServer != nil {
		addInterruptHandler(func() {
			log.Warn("Stopping legacy RPC server...")
			legacyRPCServer.Stop()
			log.Info("Legacy RPC server shutdown")
		})
		go func() {
			<-legacyRPCServer.RequestProcessShutdown()
			simulateInterrupt()
		}()
	}

	<-interruptHandlersDone
	log.Info("Shutdown complete")
	return nil
}
