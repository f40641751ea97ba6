package opsboard

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// NewTarget creates a monitored site [Target].
//
// The name is the human-readable label shown in the dashboard and logs. The
// rawURL must be an absolute http:// or https:// URL with a host.
//
// Returns an error if the name is empty or the URL is invalid.
//
// Example:
//
//	t, err := opsboard.NewTarget("Tramita UE118", "https://tramita.ue118.gob.pe/")
func NewTarget(name, rawURL string) (Target, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Target{}, errors.New("target name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, errors.New("invalid URL: " + err.Error())
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Target{}, errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsedURL.Host == "" {
		return Target{}, fmt.Errorf("URL %q has no host", rawURL)
	}

	return Target{Name: name, URL: rawURL}, nil
}

// MustTarget is like [NewTarget] but panics on error. It is intended for
// package-level target lists built from literals.
func MustTarget(name, rawURL string) Target {
	t, err := NewTarget(name, rawURL)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTargets returns the sites monitored when no targets are configured.
func DefaultTargets() []Target {
	return []Target{
		MustTarget("Tramita UE118", "https://tramita.ue118.gob.pe/"),
		MustTarget("Soporte UE118", "https://soporte.ue118.gob.pe/"),
		MustTarget("Gestiona UE118", "https://gestiona.ue118.gob.pe/"),
	}
}
