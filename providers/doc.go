// Package providers contains the OAuth2 authorization-code exchanger shared
// by provider transports. Provider-specific API clients live in
// subpackages.
package providers
