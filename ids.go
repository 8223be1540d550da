package broker

import "github.com/rs/xid"

// randomSuffix generates a short unique suffix for anonymous client ids,
// matching the teacher's own use of rs/xid for default identifiers.
func randomSuffix() string {
	return xid.New().String()
}
