package factory

import "github.com/abesuite/abec/abelog"

var log = abelog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger abelog.Logger) {
	log = logger
}
