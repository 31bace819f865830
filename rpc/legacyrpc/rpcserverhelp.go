package legacyrpc

func helpDescsEnUS() map[string]string {
	return map[string]string{
		"instantiate": "instantiate \"sender\" codeid msg (\"label\" \"admin\" \"funds\")\n\n" +
			"Creates a new instance of a stored code on behalf of sender.\n\n" +
			"Arguments:\n" +
			"1. sender (string, required) The principal creating the instance\n" +
			"2. codeid (numeric, required) The code to instantiate\n" +
			"3. msg    (object, required) The instantiate message\n" +
			"4. label  (string, optional) A human readable label\n" +
			"5. admin  (string, optional) The admin of the instance\n" +
			"6. funds  (string, optional) Coins sent along, e.g. \"5abe,3xyz\"\n\n" +
			"Result: the committed call, including contract_address and events",
		"execute": "execute \"sender\" \"contract\" msg (\"funds\")\n\n" +
			"Calls the execute entry point of a contract on behalf of sender.\n" +
			"Every message the contract emits runs in the same call; if any of\n" +
			"them fails nothing is committed.\n\n" +
			"Arguments:\n" +
			"1. sender   (string, required) The calling principal\n" +
			"2. contract (string, required) The contract address\n" +
			"3. msg      (object, required) The execute message\n" +
			"4. funds    (string, optional) Coins sent along\n\n" +
			"Result: the committed call, including events and data",
		"query": "query \"contract\" msg\n\n" +
			"Runs a read-only query against the last committed state.\n\n" +
			"Result: the contract's answer",
		"contractinfo": "contractinfo \"address\"\n\n" +
			"Returns the code, creator, admin, label and creation height of a contract.",
		"listcontracts": "listcontracts codeid\n\n" +
			"Lists every instance of a code in creation order.",
		"listcodes": "listcodes\n\n" +
			"Lists the stored codes and their ids.",
		"blockheight": "blockheight\n\n" +
			"Returns the height of the last committed call, the current block time and the chain id.",
		"backup": "backup \"destination\"\n\n" +
			"Writes a consistent snapshot of the database to a new file on the daemon's host.",
		"help": "help (\"command\")\n\n" +
			"Returns a list of all commands or help for a specified command.",
	}
}

var localeHelpDescs = map[string]func() map[string]string{
	"en_US": helpDescsEnUS,
}

var requestUsages = "backup \"destination\"\n" +
	"blockheight\n" +
	"contractinfo \"address\"\n" +
	"execute \"sender\" \"contract\" msg (\"funds\")\n" +
	"help (\"command\")\n" +
	"instantiate \"sender\" codeid msg (\"label\" \"admin\" \"funds\")\n" +
	"listcodes\n" +
	"listcontracts codeid\n" +
	"query \"contract\" msg"
