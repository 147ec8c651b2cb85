package imageref

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-executor/internal/core/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantRepo string
		wantTag  string
	}{
		{"bare name", "node", "node", "latest"},
		{"name and tag", "node:6", "node", "6"},
		{"explicit latest", "node:latest", "node", "latest"},
		{"namespace", "lighthouse/launcher:stable", "lighthouse/launcher", "stable"},
		{"docker hub host kept verbatim", "docker.io/library/node:18", "docker.io/library/node", "18"},
		{"registry with port, no tag", "docker-registry.foo.bar:1111/someImage", "docker-registry.foo.bar:1111/someImage", "latest"},
		{"registry with port and tag", "docker-registry.foo.bar:1111/someImage:v2", "docker-registry.foo.bar:1111/someImage", "v2"},
		{"registry with port and latest", "host:1111/someImage:latest", "host:1111/someImage", "latest"},
		{"mixed case tag", "host:1111/img:V2-Beta", "host:1111/img", "V2-Beta"},
		{"surrounding whitespace", "  alpine:3.19 ", "alpine", "3.19"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRepo, got.Repository)
			assert.Equal(t, tt.wantTag, got.Tag)
		})
	}
}

func TestResolve_NoInjectedNamespace(t *testing.T) {
	got, err := Resolve("host:1111/someImage:v2")
	require.NoError(t, err)
	assert.Equal(t, "host:1111/someImage", got.Repository)
	assert.NotContains(t, got.Repository, "library")
	assert.Equal(t, "host:1111/someImage:v2", got.String())
}

func TestResolve_Digest(t *testing.T) {
	ref := "alpine@sha256:" + "e4355b66995c96b4b468159fc5c7e3540fcef961189ca13fee877798649f531a"

	got, err := Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, ref, got.Repository)
	assert.Equal(t, "latest", got.Tag)
	assert.Equal(t, ref, got.String(), "digest references are pulled by digest")
}

func TestResolve_Invalid(t *testing.T) {
	for _, ref := range []string{"", "   ", "node:", "a//b", "node:bad tag", "UPPER CASE", "node:\u212a", "node:v\u212a1", "\u212aube/app:1", "nodé:1"} {
		t.Run(ref, func(t *testing.T) {
			_, err := Resolve(ref)
			require.Error(t, err)

			var resErr *domain.ImageResolutionError
			assert.True(t, errors.As(err, &resErr), "expected ImageResolutionError, got %T", err)
		})
	}
}

func TestResolve_NonASCIIIsRejected(t *testing.T) {
	// U+212A lower-cases to an ASCII "k" of a different byte length.
	got, err := Resolve("node:v\u212a1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "non-ASCII")
	assert.Equal(t, domain.ImageReference{}, got)
}
