// Package imageref turns free-form image strings into runtime-ready
// repository/tag pairs.
//
// The grammar is validated with github.com/distribution/reference, but the
// repository returned is always a slice of the caller's own string: the
// normalized name ("docker.io/library/node") is never used, so no namespace
// or registry segment the caller did not write ends up in a pull request.
package imageref

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/distribution/reference"

	"github.com/melih/lighthouse-executor/internal/core/domain"
)

// DefaultTag is used when a reference carries no tag.
const DefaultTag = "latest"

var (
	errEmpty    = errors.New("empty reference")
	errNonASCII = errors.New("reference contains non-ASCII characters")
)

// Resolve parses ref into a repository and tag.
//
//	node             -> {node, latest}
//	node:6           -> {node, 6}
//	host:1111/img:v2 -> {host:1111/img, v2}
//	host:1111/img    -> {host:1111/img, latest}
func Resolve(ref string) (domain.ImageReference, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.ImageReference{}, &domain.ImageResolutionError{Reference: ref, Err: errEmpty}
	}
	// Offsets found in the lower-cased copy are applied to ref, which only
	// holds when lower-casing keeps every byte in place.
	if !isASCII(ref) {
		return domain.ImageReference{}, &domain.ImageResolutionError{Reference: ref, Err: errNonASCII}
	}

	// Private registries commonly use mixed-case repository names which the
	// strict grammar rejects; validate a lower-cased copy instead.
	named, err := reference.ParseNormalizedNamed(strings.ToLower(ref))
	if err != nil {
		return domain.ImageReference{}, &domain.ImageResolutionError{Reference: ref, Err: err}
	}

	tagged, hasTag := named.(reference.Tagged)

	if _, digested := named.(reference.Digested); digested {
		tag := DefaultTag
		if hasTag {
			tag = originalTag(ref, tagged.Tag())
		}
		return domain.ImageReference{Repository: ref, Tag: tag}, nil
	}

	if !hasTag {
		return domain.ImageReference{Repository: ref, Tag: DefaultTag}, nil
	}

	tag := originalTag(ref, tagged.Tag())
	repository := ref[:len(ref)-len(tag)-1]
	if strings.EqualFold(tag, DefaultTag) {
		tag = DefaultTag
	}
	return domain.ImageReference{Repository: repository, Tag: tag}, nil
}

// originalTag recovers the tag with the caller's casing. The parsed tag came
// from a lower-cased copy of an ASCII-only string, so lengths line up.
func originalTag(ref, parsed string) string {
	if at := strings.IndexByte(ref, '@'); at >= 0 {
		ref = ref[:at]
	}
	return ref[len(ref)-len(parsed):]
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
