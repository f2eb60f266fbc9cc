package watcher

import (
	"os"
	"strings"
	"unicode/utf8"
)

// ProbeMarker is appended to the exclusion root to form the prefix of the
// consumer's transient probe files. It is not configurable.
const ProbeMarker = ".probe-"

// Classify returns the paths of ev that are worth reporting. Directories,
// probe files under exclusionRoot and paths that are not valid UTF-8 are
// dropped. The result may be empty.
func Classify(ev RawEvent, exclusionRoot string) []string {
	probePrefix := exclusionRoot + ProbeMarker

	var kept []string
	for _, path := range ev.Paths {
		if isDir(path) {
			continue
		}
		if strings.HasPrefix(path, probePrefix) {
			continue
		}
		if !utf8.ValidString(path) {
			continue
		}
		kept = append(kept, path)
	}
	return kept
}

// isDir reports whether path currently resolves to a directory. A path that
// no longer exists (deleted or renamed away) is not a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
