// Package reddit implements the saved-content transport against Reddit's
// OAuth API: authorization-code exchange, current-user lookup and the
// saved listing.
package reddit
