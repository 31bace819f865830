package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/abesuite/hostwallet/ledger"
	"golang.org/x/crypto/ssh/terminal"
)

// ProvidePassphrase prompts on the terminal for a passphrase with the given
// prefix, without echoing it.  Empty input is not accepted.
func ProvidePassphrase(prefix string) ([]byte, error) {
	prompt := fmt.Sprintf("%s: ", prefix)
	for {
		fmt.Print(prompt)
		pass, err := terminal.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return nil, err
		}
		fmt.Print("\n")
		pass = bytes.TrimSpace(pass)
		if len(pass) == 0 {
			continue
		}

		return pass, nil
	}
}

// promptList prompts the user with the given prefix, list of valid responses,
// and default list entry to use.  The function will repeat the prompt to the
// user until they enter a valid response.
func promptList(reader *bufio.Reader, prefix string, validResponses []string, defaultEntry string) (string, error) {
	// Setup the prompt according to the parameters.
	validStrings := strings.Join(validResponses, "/")
	var prompt string
	if defaultEntry != "" {
		prompt = fmt.Sprintf("%s (%s) [%s]: ", prefix, validStrings,
			defaultEntry)
	} else {
		prompt = fmt.Sprintf("%s (%s): ", prefix, validStrings)
	}

	// Prompt the user until one of the valid responses is given.
	for {
		fmt.Print(prompt)
		reply, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		reply = strings.TrimSpace(strings.ToLower(reply))
		if reply == "" {
			reply = defaultEntry
		}

		for _, validResponse := range validResponses {
			if reply == validResponse {
				return reply, nil
			}
		}
	}
}

// promptListBool prompts the user for a boolean (yes/no) with the given prefix.
// The function will repeat the prompt to the user until they enter a valid
// reponse.
func promptListBool(reader *bufio.Reader, prefix string, defaultEntry string) (bool, error) {
	// Setup the valid responses.
	valid := []string{"n", "no", "y", "yes"}
	response, err := promptList(reader, prefix, valid, defaultEntry)
	if err != nil {
		return false, err
	}
	return response == "yes" || response == "y", nil
}

// Confirm asks a yes/no question and repeats it until the user answers.
func Confirm(reader *bufio.Reader, question string, defaultYes bool) (bool, error) {
	defaultEntry := "no"
	if defaultYes {
		defaultEntry = "yes"
	}
	return promptListBool(reader, question, defaultEntry)
}

// Address prompts for a ledger account address.  An empty reply selects
// defaultAddr.  Replies that are not valid addresses are rejected and the
// prompt is repeated.
func Address(reader *bufio.Reader, prefix, defaultAddr string) (string, error) {
	prompt := fmt.Sprintf("%s: ", prefix)
	if defaultAddr != "" {
		prompt = fmt.Sprintf("%s [%s]: ", prefix, defaultAddr)
	}

	for {
		fmt.Print(prompt)
		reply, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			reply = defaultAddr
		}

		if err := ledger.ValidateAddress(reply); err != nil {
			fmt.Println(err)
			continue
		}
		return reply, nil
	}
}

// Chains prompts for a comma separated list of chain names.  An empty reply
// selects defaults.  Duplicate names are dropped.
func Chains(reader *bufio.Reader, prefix string, defaults []string) ([]string, error) {
	fmt.Printf("%s [%s]: ", prefix, strings.Join(defaults, ","))
	reply, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return defaults, nil
	}

	seen := make(map[string]struct{})
	chains := make([]string, 0, strings.Count(reply, ",")+1)
	for _, chain := range strings.Split(reply, ",") {
		chain = strings.TrimSpace(chain)
		if chain == "" {
			continue
		}
		if _, ok := seen[chain]; ok {
			continue
		}
		seen[chain] = struct{}{}
		chains = append(chains, chain)
	}
	if len(chains) == 0 {
		return defaults, nil
	}
	return chains, nil
}
