// Package state provides the persisted state document and its typed views.
//
// A Document is an immutable JSON object. Every write (Set, SetRaw, Delete,
// WithProviders, WithVersion) returns a new Document and leaves the receiver
// untouched, so a migration step can never leave a half-written document
// behind when it fails.
//
// Unknown keys are never dropped: path writes go through sjson on the raw
// bytes, and the typed Provider and Model views carry unrecognized keys in
// their Extra maps.
//
// # Canonical form
//
// MarshalCanonical renders a document with RFC 8785 key ordering and NFC
// normalized strings. Fingerprint hashes that form with a domain prefix and
// is what the migration history records before and after every step.
package state
