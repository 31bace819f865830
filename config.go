package main

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/abesuite/abec/abeutil"
	"github.com/abesuite/hostwallet/internal/cfgutil"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename   = "hostwallet.conf"
	defaultLogLevel         = "info"
	defaultLogDirname       = "logs"
	defaultLogFilename      = "hostwallet.log"
	defaultChainID          = "hostwallet-local"
	defaultHostChain        = "local"
	defaultDeployer         = "hostwallet"
	defaultRPCPort          = "18665"
	defaultGRPCPort         = "18666"
	defaultRPCMaxClients    = 10
	defaultRPCMaxWebsockets = 25
	walletDbName            = "ledger.db"
)

var (
	defaultAppDataDir = abeutil.AppDataDir("hostwallet", false)
	defaultConfigFile = filepath.Join(defaultAppDataDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultAppDataDir, defaultLogDirname)
)

type config struct {
	// General application behavior
	ConfigFile           *cfgutil.ExplicitString `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion          bool                    `short:"V" long:"version" description:"Display version information and exit"`
	Create               bool                    `long:"create" description:"Create the ledger if it does not exist"`
	NonInteractiveCreate bool                    `long:"noninteractivecreate" description:"Create the ledger from the configured values without prompting"`
	AppDataDir           *cfgutil.ExplicitString `short:"A" long:"appdata" description:"Application data directory for ledger and logs"`
	LogDir               string                  `long:"logdir" description:"Directory to log output."`
	DebugLevel           string                  `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	Profile              string                  `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65535"`

	// Ledger options
	ChainID        string               `long:"chainid" description:"Identifier of the chain the ledger is created for"`
	HostChain      string               `long:"hostchain" description:"Chain wallets created by the factory live on"`
	ExecutorChains []string             `long:"executorchains" description:"Chains the factory may create executors for (may be repeated)"`
	Deployer       *cfgutil.AddressFlag `long:"deployer" description:"Account deploying the wallet factory when the ledger is created"`

	// RPC server options
	RPCListeners        []string `long:"rpclisten" description:"Listen for JSON-RPC connections on this interface/port (default port: 18665)"`
	GRPCListeners       []string `long:"grpclisten" description:"Listen for gRPC connections on this interface/port (default port: 18666)"`
	NoListen            bool     `long:"nolisten" description:"Disable all RPC servers"`
	Username            string   `short:"u" long:"username" description:"Username for JSON-RPC client authentication"`
	Password            string   `short:"P" long:"password" default-mask:"-" description:"Password for JSON-RPC client authentication"`
	MaxPOSTClients      int64    `long:"maxrpcclients" description:"Max number of RPC clients for standard connections"`
	MaxWebsocketClients int64    `long:"maxwebsocketclients" description:"Max number of RPC websocket connections"`
}

// cleanAndExpandPath expands environement variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string

		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// uniqueChains returns chains without empty names and duplicates, keeping
// the first occurrence of every name.
func uniqueChains(chains []string) []string {
	seen := make(map[string]struct{}, len(chains))
	unique := make([]string, 0, len(chains))
	for _, chain := range chains {
		chain = strings.TrimSpace(chain)
		if chain == "" {
			continue
		}
		if _, ok := seen[chain]; ok {
			continue
		}
		seen[chain] = struct{}{}
		unique = append(unique, chain)
	}
	return unique
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//      1) Start with a default config with sane settings
//      2) Pre-parse the command line to check for an alternative config file
//      3) Load configuration file overwriting defaults with any specified options
//      4) Parse CLI options and overwrite/add any specified options
//
// The above results in hostwallet functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		DebugLevel:          defaultLogLevel,
		ConfigFile:          cfgutil.NewExplicitString(defaultConfigFile),
		AppDataDir:          cfgutil.NewExplicitString(defaultAppDataDir),
		LogDir:              defaultLogDir,
		ChainID:             defaultChainID,
		HostChain:           defaultHostChain,
		Deployer:            cfgutil.NewAddressFlag(defaultDeployer),
		MaxPOSTClients:      defaultRPCMaxClients,
		MaxWebsocketClients: defaultRPCMaxWebsockets,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	funcName := "loadConfig"
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(&cfg, flags.Default)
	configFilePath := preCfg.ConfigFile.Value
	if preCfg.ConfigFile.ExplicitlySet() {
		configFilePath = cleanAndExpandPath(configFilePath)
	} else {
		appDataDir := preCfg.AppDataDir.Value
		if appDataDir != defaultAppDataDir {
			configFilePath = filepath.Join(appDataDir, defaultConfigFilename)
		}
	}
	err = flags.NewIniParser(parser).ParseFile(configFilePath)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// If an alternate data directory was specified, and paths with defaults
	// relative to the data dir are unchanged, modify each path to be
	// relative to the new data dir.
	if cfg.AppDataDir.ExplicitlySet() {
		cfg.AppDataDir.Value = cleanAndExpandPath(cfg.AppDataDir.Value)
		if cfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.AppDataDir.Value, defaultLogDirname)
		}
	}

	// Ensure the application data directory exists.
	if err := checkCreateDir(cfg.AppDataDir.Value); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	if cfg.ChainID == "" {
		str := "%s: the chain id may not be empty"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if cfg.HostChain == "" {
		str := "%s: the host chain may not be empty"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Executors can always be created for the host chain.  Other chains
	// are accepted so the factory configuration is complete, even though
	// the factory refuses to create executors for them.
	cfg.ExecutorChains = uniqueChains(append([]string{cfg.HostChain},
		cfg.ExecutorChains...))

	// Exit if you try to use a profile port outside of the valid range.
	if cfg.Profile != "" {
		if err := checkProfilePort(cfg.Profile); err != nil {
			err := fmt.Errorf("%s: %v", funcName, err)
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	if cfg.Create && cfg.NonInteractiveCreate {
		str := "%s: the --create and --noninteractivecreate " +
			"options may not be used together"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	if !cfg.NoListen {
		if cfg.Username == "" || cfg.Password == "" {
			str := "%s: the --username and --password options " +
				"are required unless --nolisten is specified"
			err := fmt.Errorf(str, funcName)
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}

		// Default to localhost listen addresses when none were
		// specified.
		if len(cfg.RPCListeners) == 0 {
			cfg.RPCListeners = localhostListeners(defaultRPCPort)
		}
		if len(cfg.GRPCListeners) == 0 {
			cfg.GRPCListeners = localhostListeners(defaultGRPCPort)
		}

		cfg.RPCListeners, err = cfgutil.NormalizeAddresses(
			cfg.RPCListeners, defaultRPCPort)
		if err != nil {
			fmt.Fprintf(os.Stderr,
				"Invalid network address in RPC listeners: %v\n", err)
			return nil, nil, err
		}
		cfg.GRPCListeners, err = cfgutil.NormalizeAddresses(
			cfg.GRPCListeners, defaultGRPCPort)
		if err != nil {
			fmt.Fprintf(os.Stderr,
				"Invalid network address in gRPC listeners: %v\n", err)
			return nil, nil, err
		}
	}

	if cfg.MaxPOSTClients <= 0 || cfg.MaxWebsocketClients <= 0 {
		str := "%s: the RPC client limits must be positive"
		err := fmt.Errorf(str, funcName)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Warn about missing config file after the final command line parse
	// succeeds.  This prevents the warning on help messages and invalid
	// options.
	if configFileError != nil {
		log.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}

// localhostListeners returns the loopback addresses found on this host with
// port added, falling back to localhost.
func localhostListeners(port string) []string {
	addrs, err := net.LookupHost("localhost")
	if err != nil || len(addrs) == 0 {
		return []string{net.JoinHostPort("localhost", port)}
	}
	sort.Strings(addrs)

	listeners := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		listeners = append(listeners, net.JoinHostPort(addr, port))
	}
	return listeners
}

// checkProfilePort validates the --profile option.
func checkProfilePort(profile string) error {
	port, err := strconv.Atoi(profile)
	if err != nil || port < 1024 || port > 65535 {
		return fmt.Errorf("the profile port must be between 1024 and 65535")
	}
	return nil
}
