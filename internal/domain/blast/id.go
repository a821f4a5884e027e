package blast

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/blastxml/internal/domain"
)

var reportIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateReportID checks that id is usable as a stored report identifier.
func ValidateReportID(id string) error {
	if !reportIDPattern.MatchString(id) {
		return fmt.Errorf("%w: report id %q must match %s", domain.ErrInvalidArgument, id, reportIDPattern)
	}
	return nil
}
