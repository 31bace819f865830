package main

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/abesuite/abec/abejson"
	"github.com/abesuite/abec/abeutil"
	"github.com/abesuite/hostwallet/internal/cfgutil"
	"github.com/abesuite/hostwallet/internal/prompt"
	"github.com/abesuite/hostwallet/rpc/hwjson"
	flags "github.com/jessevdk/go-flags"
	"golang.org/x/crypto/ssh/terminal"
)

const (
	// unusableFlags are the command usage flags which this utility are not
	// able to use.  In particular it doesn't support websockets and
	// consequently notifications.
	unusableFlags = abejson.UFWebsocketOnly | abejson.UFNotification

	defaultConfigFilename = "hostwalletctl.conf"
	defaultRPCPort        = "18665"
)

var (
	hostwalletHomeDir     = abeutil.AppDataDir("hostwallet", false)
	ctlHomeDir            = abeutil.AppDataDir("hostwalletctl", false)
	defaultConfigFile     = filepath.Join(ctlHomeDir, defaultConfigFilename)
	defaultRPCServer      = "localhost"
	walletConfigFile      = filepath.Join(hostwalletHomeDir, "hostwallet.conf")
	usernameConfigPattern = regexp.MustCompile(`(?m)^\s*username=([^\s]+)`)
	passwordConfigPattern = regexp.MustCompile(`(?m)^\s*password=([^\s]+)`)
)

// listCommands lists all of the usable commands along with their one-line
// usage.
func listCommands() {
	var usages []string
	for _, method := range hwjson.Methods() {
		usage, err := abejson.MethodUsageText(method)
		if err != nil {
			// This should never happen since the method was just
			// returned from the package, but be safe.
			continue
		}
		usages = append(usages, usage)
	}

	names := make([]string, 0, len(utilityHandlers))
	for name := range utilityHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		usages = append(usages, name+" "+utilityHandlers[name].usage)
	}

	fmt.Println("Ledger Server Commands:")
	for _, usage := range usages {
		fmt.Println(usage)
	}
}

// config defines the configuration options for hostwalletctl.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	ListCommands  bool   `short:"l" long:"listcommands" description:"List all of the supported commands and exit"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	RPCUser       string `short:"u" long:"rpcuser" description:"RPC username"`
	RPCPassword   string `short:"P" long:"rpcpass" default-mask:"-" description:"RPC password"`
	AskPassword   bool   `long:"askpass" description:"Prompt for the RPC password instead of reading it from the configuration"`
	RPCServer     string `short:"s" long:"rpcserver" description:"RPC server to connect to"`
	Proxy         string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser     string `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass     string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
}

// normalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(ctlHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
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
// The above results in functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile: defaultConfigFile,
		RPCServer:  defaultRPCServer,
	}

	// Pre-parse the command line options to see if an alternative config
	// file, the version flag, or the list commands flag was specified.  Any
	// errors aside from the help message error can be ignored here since
	// they will be caught by the final parse below.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "The special parameter `-` "+
				"indicates that a parameter should be read "+
				"from the\nnext unread line from standard input.")
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show options", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", appVersion)
		os.Exit(0)
	}

	// Show the available commands and exit if the associated flag was
	// specified.
	if preCfg.ListCommands {
		listCommands()
		os.Exit(0)
	}

	if exists, _ := cfgutil.FileExists(preCfg.ConfigFile); !exists {
		// Use config file for the wallet to lookup RPC credentials, if
		// a config file has not been found for the ctl.
		if err := readWalletCredentials(&cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading wallet config "+
				"file: %v\n", err)
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n",
				err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	if cfg.AskPassword {
		if !terminal.IsTerminal(int(os.Stdin.Fd())) {
			err := errors.New("--askpass requires an interactive terminal")
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
		pass, err := prompt.ProvidePassphrase("Enter the RPC password")
		if err != nil {
			return nil, nil, err
		}
		cfg.RPCPassword = string(pass)
	}

	// Add default port to RPC server based if needed.
	cfg.RPCServer = normalizeAddress(cfg.RPCServer, defaultRPCPort)

	return &cfg, remainingArgs, nil
}

// readWalletCredentials fills in the RPC credentials of cfg from the daemon's
// config file when it exists.
func readWalletCredentials(cfg *config) error {
	f, err := os.Open(walletConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var content strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		content.WriteString(scanner.Text())
		content.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	parseCredentials(cfg, content.String())
	return nil
}

// parseCredentials extracts the last username and password settings of a
// daemon config file.
func parseCredentials(cfg *config, content string) {
	if m := usernameConfigPattern.FindAllStringSubmatch(content, -1); m != nil {
		cfg.RPCUser = m[len(m)-1][1]
	}
	if m := passwordConfigPattern.FindAllStringSubmatch(content, -1); m != nil {
		cfg.RPCPassword = m[len(m)-1][1]
	}
}
