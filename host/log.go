package host

import "github.com/abesuite/abec/abelog"

// log is a logger that is initialized with no output filters.  This
// means the package will not perform any logging by default until the caller
// requests it.
var log = abelog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger abelog.Logger) {
	log = logger
}
