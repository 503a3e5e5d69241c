// Package common contains shared constants and sentinel errors used across
// photosafe components.
package common

// AuthTokenHeaderName is the HTTP header used to carry the access token on
// outbound API requests.
const AuthTokenHeaderName = "X-Auth-Token"
