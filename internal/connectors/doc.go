// Package connectors resolves document locators to raw bytes. Each
// connector handles one kind of locator (local files, web URLs) and the
// Router picks between them by scheme.
package connectors
