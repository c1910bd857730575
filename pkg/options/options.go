// Package options defines the generic options contract shared by all
// component option structs.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates flag-name prefixes with "." and appends a trailing
// "." when non-empty, producing names like "scholar.milvus.address".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by every component options struct.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags binds the options to the given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
