// Package naming maps build ids to container names and the tracking label.
package naming

import (
	"fmt"
	"regexp"

	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/ports"
)

var (
	buildIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	prefixPattern  = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_.-]*)?$`)
)

// Validate rejects build ids and prefixes that are not safe to embed in
// container names and runtime label filters.
func Validate(prefix, buildID string) error {
	if !buildIDPattern.MatchString(buildID) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidBuildID, buildID)
	}
	return ValidatePrefix(prefix)
}

// ValidatePrefix checks a tenant prefix on its own.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return fmt.Errorf("%w: prefix %q", domain.ErrInvalidBuildID, prefix)
	}
	return nil
}

func SupportName(prefix, buildID string) string {
	return prefix + buildID + "-init"
}

func BuildName(prefix, buildID string) string {
	return prefix + buildID + "-build"
}

// TrackingLabel is the only durable link between a build and its containers.
func TrackingLabel(prefix, buildID string) domain.TrackingLabel {
	return domain.TrackingLabel{Key: domain.TrackingLabelKey, Value: prefix + buildID}
}

// For validates the inputs and returns every name of one build.
func For(prefix, buildID string) (ports.Names, error) {
	if err := Validate(prefix, buildID); err != nil {
		return ports.Names{}, err
	}
	return ports.Names{
		Support: SupportName(prefix, buildID),
		Build:   BuildName(prefix, buildID),
		Label:   TrackingLabel(prefix, buildID),
	}, nil
}
