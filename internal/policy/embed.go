package policy

import _ "embed"

// defaultPolicy is the built-in policy table, used when no external policy
// file is configured.
//
//go:embed policy.yaml
var defaultPolicy []byte
