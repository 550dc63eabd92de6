// Package migrate evolves persisted documents from the version they were
// saved at to the latest schema version.
//
// A Registry holds one Step per version. A Runner applies the steps newer
// than a document's stamp in ascending order, stamping the version after
// each one so an interrupted run resumes from the last completed step.
// Steps never edit their input: each returns a new state.Document, which
// lets the runner compare the documents on either side of a step and reject
// any step that drops a provider or rewrites a user's API key.
package migrate
