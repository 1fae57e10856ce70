// Package core contains the saved-content domain contracts, the session
// credential state machine, the paginated content client and the item
// normalizer. Transport, storage and UI adapters depend on this package;
// core must not depend on provider-specific or storage-specific adapters.
package core
