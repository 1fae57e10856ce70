// Package bridge is the asynchronous boundary between a UI and the saved
// content pipeline. Intents go in through InitializeSession and RequestPage,
// results come back on the Events channel. Page fetches run one at a time;
// only the most recent intent produces an event.
package bridge
