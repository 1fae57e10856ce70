// Package security seals values written to the key-value store with an
// application key.
package security
