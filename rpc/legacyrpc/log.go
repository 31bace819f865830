package legacyrpc

import (
	"github.com/abesuite/abec/abejson"
	"github.com/abesuite/abec/abelog"
)

var log = abelog.Disabled

// UseLogger sets the package-wide logger.  Any calls to this function must be
// made before a server is created and used (it is not concurrent safe).
func UseLogger(logger abelog.Logger) {
	log = logger
}

// logRequest records the outcome of a handled request.  Contract failures
// are ordinary results for a client, so they are only logged at debug level.
func logRequest(method string, jsonErr *abejson.RPCError) {
	if jsonErr == nil {
		log.Tracef("Handled %s request", method)
		return
	}
	log.Debugf("Request %s failed: %v", method, jsonErr)
}
