// Package extractors turns fetched document bytes into text.
//
// Each sub-package implements driven.Extractor for one family of formats.
// The Registry picks one by extension, MIME type or content sniffing and
// never fails: unreadable input yields diagnostic text so that a bad upload
// shows up in answers instead of aborting ingestion.
package extractors
