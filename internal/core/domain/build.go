package domain

import (
	"strconv"
	"strings"
)

const (
	// DefaultTimeoutMinutes applies when a build carries no timeout.
	DefaultTimeoutMinutes = 90

	// TimeoutAnnotation is read when BuildRequest.TimeoutMinutes is unset.
	TimeoutAnnotation = "lighthouse.build/timeout"
)

// Endpoints are the platform URIs handed to the in-container launcher.
type Endpoints struct {
	API   string `json:"api"`
	Store string `json:"store"`
	UI    string `json:"ui"`
}

// BuildRequest is one build attempt as sent by the calling orchestrator.
type BuildRequest struct {
	BuildID        string            `json:"build_id"`
	Image          string            `json:"image"`
	Token          string            `json:"token"`
	TimeoutMinutes int               `json:"timeout_minutes,omitempty"`
	Annotations    map[string]string `json:"annotations,omitempty"`
	Endpoints      Endpoints         `json:"endpoints"`
	NamePrefix     string            `json:"name_prefix,omitempty"`
}

// Timeout returns the effective build timeout in minutes.
func (r BuildRequest) Timeout() int {
	if r.TimeoutMinutes > 0 {
		return r.TimeoutMinutes
	}
	if v, ok := r.Annotations[TimeoutAnnotation]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return DefaultTimeoutMinutes
}

// StopRequest identifies the build whose containers should be removed.
type StopRequest struct {
	BuildID    string `json:"build_id"`
	NamePrefix string `json:"name_prefix,omitempty"`
}

// ImageReference is a runtime-ready image name split into repository and tag.
type ImageReference struct {
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
}

// String renders the reference as passed to the runtime.
// Digest references are pulled by digest and the tag is ignored.
func (r ImageReference) String() string {
	if strings.Contains(r.Repository, "@") {
		return r.Repository
	}
	return r.Repository + ":" + r.Tag
}
