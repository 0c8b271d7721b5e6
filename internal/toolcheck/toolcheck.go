// Package toolcheck verifies the host programs a session depends on are
// installed before any work starts.
package toolcheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/old-void-ppc/void-mklive/internal/utils/general/slice"
	"github.com/old-void-ppc/void-mklive/internal/utils/logger"
	"github.com/old-void-ppc/void-mklive/internal/utils/shell"
)

var ErrMissingTool = errors.New("missing required tool")

// BaselineTools are needed by every session.
var BaselineTools = []string{"chroot", "tar", "xbps-install", "xbps-reconfigure", "xbps-query", "modprobe"}

// Tools returns the baseline merged with extra, without duplicates.
func Tools(extra ...string) []string {
	return slice.Merge(BaselineTools, extra)
}

// Check looks up every tool on the host PATH and reports all missing ones
// in a single error wrapping ErrMissingTool.
func Check(extra ...string) error {
	log := logger.Logger()
	var missing []string

	for _, tool := range Tools(extra...) {
		exists, err := shell.IsCommandExist(tool, shell.HostPath)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", tool, err)
		}
		if !exists {
			missing = append(missing, tool)
			continue
		}
		log.Debugf("Found required tool %s", tool)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingTool, strings.Join(missing, ", "))
	}
	return nil
}
