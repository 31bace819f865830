package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abesuite/abec/abejson"
	"github.com/abesuite/hostwallet/factory"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/rpc/hwjson"
)

const (
	appVersion = "0.1.0-beta"

	showHelpMessage = "Specify -h to show available options"
	listCmdMessage  = "Specify -l to list available commands"
)

// commandUsage display the usage for a specific command.
func commandUsage(method string) {
	if u, ok := utilityHandlers[method]; ok {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintf(os.Stderr, "  %s %s\n", method, u.usage)
		return
	}

	usage, err := abejson.MethodUsageText(method)
	if err != nil {
		// This should never happen since the method was already checked
		// before calling this function, but be safe.
		fmt.Fprintln(os.Stderr, "Failed to obtain command usage:", err)
		return
	}

	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintf(os.Stderr, "  %s\n", usage)
}

// usage displays the general usage when the help flag is not displayed and
// and an invalid command was specified.  The commandUsage function is used
// instead when a valid command was specified.
func usage(errorMessage string) {
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	fmt.Fprintln(os.Stderr, errorMessage)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintf(os.Stderr, "  %s [OPTIONS] <command> <args...>\n\n",
		appName)
	fmt.Fprintln(os.Stderr, showHelpMessage)
	fmt.Fprintln(os.Stderr, listCmdMessage)
}

func main() {
	cfg, args, err := loadConfig()
	if err != nil {
		os.Exit(1)
	}
	if len(args) < 1 {
		usage("No command specified")
		os.Exit(1)
	}

	// Ensure the specified method identifies a valid registered command and
	// is one of the usable types.
	method := args[0]
	if _, ok := utilityHandlers[method]; !ok {
		usageFlags, err := abejson.MethodUsageFlags(method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unrecognized command '%s'\n", method)
			fmt.Fprintln(os.Stderr, listCmdMessage)
			os.Exit(1)
		}
		if usageFlags&unusableFlags != 0 {
			fmt.Fprintf(os.Stderr, "The '%s' command can only be used via "+
				"websockets\n", method)
			fmt.Fprintln(os.Stderr, listCmdMessage)
			os.Exit(1)
		}
	}

	// Convert remaining command line args to a slice of interface values
	// to be passed along as parameters to new command creation function.
	//
	// Contract messages can be too large or too awkward to quote for a
	// shell, so support using '-' as an argument to read the argument from
	// the next line of stdin.
	params, err := readParams(args[1:], bufio.NewReader(os.Stdin))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// check utility
	if u, ok := utilityHandlers[method]; ok {
		result, err := u.handler(params, sendFunc(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", method, err)
			commandUsage(method)
			os.Exit(1)
		}
		printResult(result)
		os.Exit(0)
	}

	// Attempt to create the appropriate command using the arguments
	// provided by the user.
	cmd, err := abejson.NewCmd(method, params...)
	if err != nil {
		// Show the error along with its error code when it's a
		// abejson.Error as it reallistcally will always be since the
		// NewCmd function is only supposed to return errors of that
		// type.
		if jerr, ok := err.(abejson.Error); ok {
			fmt.Fprintf(os.Stderr, "%s command: %v (code: %s)\n",
				method, err, jerr.ErrorCode)
			commandUsage(method)
			os.Exit(1)
		}

		// The error is not a abejson.Error and this really should not
		// happen.  Nevertheless, fallback to just showing the error
		// if it should happen due to a bug in the package.
		fmt.Fprintf(os.Stderr, "%s command: %v\n", method, err)
		commandUsage(method)
		os.Exit(1)
	}

	// Marshal the command into a JSON-RPC byte slice in preparation for
	// sending it to the RPC server.
	marshalledJSON, err := abejson.MarshalCmd(1, cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Send the JSON-RPC request to the server using the user-specified
	// connection configuration.
	result, err := sendPostRequest(marshalledJSON, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	printResult(result)
}

// readParams converts the command line arguments into command parameters.
// An argument of "-" is replaced by the next line read from stdin.
func readParams(args []string, stdin *bufio.Reader) ([]interface{}, error) {
	params := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			param, err := stdin.ReadString('\n')
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read data "+
					"from stdin: %v", err)
			}
			if err == io.EOF && len(param) == 0 {
				return nil, errors.New("not enough lines " +
					"provided on stdin")
			}
			param = strings.TrimRight(param, "\r\n")
			params = append(params, param)
			continue
		}

		params = append(params, arg)
	}
	return params, nil
}

// printResult chooses how to display the result based on its type.
func printResult(result []byte) {
	strResult := string(result)
	if strings.HasPrefix(strResult, "{") || strings.HasPrefix(strResult, "[") {
		var dst bytes.Buffer
		if err := json.Indent(&dst, result, "", "  "); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to format result: %v",
				err)
			os.Exit(1)
		}
		fmt.Println(dst.String())

	} else if strings.HasPrefix(strResult, `"`) {
		var str string
		if err := json.Unmarshal(result, &str); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to unmarshal result: %v",
				err)
			os.Exit(1)
		}
		fmt.Println(str)

	} else if strResult != "null" {
		fmt.Println(strResult)
	}
}

// sender sends one marshalled JSON-RPC request and returns its result.
type sender func(marshalledJSON []byte) ([]byte, error)

func sendFunc(cfg *config) sender {
	return func(marshalledJSON []byte) ([]byte, error) {
		return sendPostRequest(marshalledJSON, cfg)
	}
}

// utility is a command implemented by the ctl on top of several requests.
type utility struct {
	usage   string
	handler func(params []interface{}, send sender) ([]byte, error)
}

var utilityHandlers = map[string]utility{
	"walletstate": {
		usage:   `"factory" "owner"`,
		handler: walletState,
	},
	"nextnonce": {
		usage:   `"wallet"`,
		handler: nextNonce,
	},
}

// query runs a contract query through the query command.
func query(send sender, contract string, msg interface{}) ([]byte, error) {
	rawMsg, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	marshalledJSON, err := abejson.MarshalCmd(1, &hwjson.QueryCmd{
		Contract: contract,
		Msg:      rawMsg,
	})
	if err != nil {
		return nil, err
	}
	return send(marshalledJSON)
}

// stringParams checks params holds exactly n strings and returns them.
func stringParams(params []interface{}, n int) ([]string, error) {
	if len(params) != n {
		return nil, fmt.Errorf("wrong number of params (expected %d, "+
			"received %d)", n, len(params))
	}
	strs := make([]string, 0, n)
	for _, p := range params {
		s, ok := p.(string)
		if !ok || s == "" {
			return nil, errors.New("parameters must be non-empty strings")
		}
		strs = append(strs, s)
	}
	return strs, nil
}

// walletStateResult is the output of walletstate.
type walletStateResult struct {
	Wallet string              `json:"wallet"`
	State  *host.StateResponse `json:"state"`
}

// walletState looks up the wallet of an owner through the factory and
// returns the wallet's full state.
func walletState(params []interface{}, send sender) ([]byte, error) {
	strs, err := stringParams(params, 2)
	if err != nil {
		return nil, err
	}
	factoryAddr, owner := strs[0], strs[1]

	res, err := query(send, factoryAddr, &factory.QueryMsg{
		GetHostContract: &factory.GetHostContractMsg{Owner: owner},
	})
	if err != nil {
		return nil, err
	}
	var wallet factory.HostContractResponse
	if err := json.Unmarshal(res, &wallet); err != nil {
		return nil, err
	}

	res, err = query(send, wallet.Host, &host.QueryMsg{GetState: &struct{}{}})
	if err != nil {
		return nil, err
	}
	var state host.StateResponse
	if err := json.Unmarshal(res, &state); err != nil {
		return nil, err
	}

	return json.Marshal(&walletStateResult{
		Wallet: wallet.Host,
		State:  &state,
	})
}

// nextNonce returns the smallest nonce the wallet will accept.
func nextNonce(params []interface{}, send sender) ([]byte, error) {
	strs, err := stringParams(params, 1)
	if err != nil {
		return nil, err
	}

	res, err := query(send, strs[0], &host.QueryMsg{GetNonce: &struct{}{}})
	if err != nil {
		return nil, err
	}
	var nonce host.NonceResponse
	if err := json.Unmarshal(res, &nonce); err != nil {
		return nil, err
	}
	return json.Marshal(nonce.Nonce + 1)
}
