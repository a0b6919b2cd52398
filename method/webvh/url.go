package webvh

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/pilacorp/go-did-resolver/method/web"
)

const (
	LogFileName     = "did.jsonl"
	WitnessFileName = "did-witness.json"
)

// splitMSID separates "<scid>:<domain>[:<path>...]".
func splitMSID(msid string) (scid, location string, err error) {
	scid, location, ok := strings.Cut(msid, ":")
	if !ok || scid == "" || location == "" {
		return "", "", fmt.Errorf("method-specific id %q is not <scid>:<domain>", msid)
	}
	if _, err := base58.Decode(scid); err != nil {
		return "", "", fmt.Errorf("scid %q is not base58btc", scid)
	}
	return scid, location, nil
}

// LogURL returns the https URL of the DID log.
func LogURL(msid string) (string, error) {
	return fileURL(msid, LogFileName)
}

// WitnessURL returns the https URL of the witness proof file.
func WitnessURL(msid string) (string, error) {
	return fileURL(msid, WitnessFileName)
}

func fileURL(msid, file string) (string, error) {
	_, location, err := splitMSID(msid)
	if err != nil {
		return "", err
	}
	return web.FileURL(location, file)
}

// baseURL returns the https URL DID URL paths are resolved against.
func baseURL(msid string) (string, error) {
	_, location, err := splitMSID(msid)
	if err != nil {
		return "", err
	}
	base, _, err := web.BaseURL(location)
	return base, err
}
