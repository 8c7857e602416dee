package domain

// RawDocument is the opaque payload fetched for a locator, before extraction.
type RawDocument struct {
	// Locator is the source the bytes came from.
	Locator string

	// Filename is the base name used for format detection.
	Filename string

	// MIMEType is the content type reported by the source, if any.
	MIMEType string

	// Content is the raw document bytes.
	Content []byte
}
