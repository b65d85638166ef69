// Package locator finds the VersaLex event log from a service's upstart
// configuration.
package locator

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
)

const (
	DefaultService = "cleo-harmony"
	DefaultInitDir = "/etc/init"
)

var cleoHome = regexp.MustCompile(`^env\s+CLEOHOME\s*=\s*(.*)`)

// DefaultLog reads <initDir>/<service>.conf and returns the Harmony.xml path
// under the CLEOHOME it sets. Any read failure is reported as not found.
func DefaultLog(initDir, service string) (string, bool) {
	if service == "" {
		service = DefaultService
	}
	if initDir == "" {
		initDir = DefaultInitDir
	}

	fh, err := os.Open(filepath.Join(initDir, service+".conf"))
	if err != nil {
		return "", false
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		if m := cleoHome.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1] + "/logs/Harmony.xml", true
		}
	}
	return "", false
}
