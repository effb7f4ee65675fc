package auth

import (
	"encoding/base64"
	"strings"
)

const (
	basicScheme  = "Basic "
	bearerScheme = "Bearer "
)

// ParseCredentialBlob decodes a login Authorization header into username
// and password. Both "Basic <base64>" and the bare base64 blob are accepted.
// The blob is split on the first ':' so passwords may contain colons.
func ParseCredentialBlob(header string) (username, password string, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "", ErrMalformedCredentials
	}
	if len(header) >= len(basicScheme) && strings.EqualFold(header[:len(basicScheme)], basicScheme) {
		header = strings.TrimSpace(header[len(basicScheme):])
	}

	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return "", "", ErrMalformedCredentials
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", ErrMalformedCredentials
	}
	return username, password, nil
}

// ParseBearer extracts the token from "Bearer <token>".
func ParseBearer(header string) (string, error) {
	if len(header) < len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", ErrMissingCredentials
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}
