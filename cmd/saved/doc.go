// Command saved logs in to Reddit and pages through the saved items of the
// signed-in account.
//
// The CLI keeps its credential store, lock file and optional config.yaml
// under a data directory (default: the user config dir plus "saved").
// Every command takes the directory lock first, so two CLI processes never
// drive the same session store at once.
//
// Configuration is read from config.yaml and overridden by SAVED_*
// environment variables (for example SAVED_CLIENT_ID or
// SAVED_STORAGE_DSN).
package main
