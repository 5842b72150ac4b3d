package tilegrid

import (
	"runtime/debug"
)

const modulePath = "github.com/LaneMorgan/tilegrid"

// Version returns the module version and checksum recorded in the
// running binary's build info. Both are empty in binaries built without
// module support, including test binaries of this module itself.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, m := range b.Deps {
		if m.Path != modulePath {
			continue
		}
		if m.Replace != nil {
			return m.Replace.Path + " " + m.Replace.Version, m.Replace.Sum
		}
		return m.Version, m.Sum
	}
	return "", ""
}
