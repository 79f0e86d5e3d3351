// Package reconcile applies a submitted delta to a product's stored images.
//
// A submit moves through Received, Validating and Applying and ends either
// Committed or RolledBack. Validation reads the current images and decodes
// every inline entry before anything is written, so a bad payload never
// touches storage. Applying builds the complete new directory in staging,
// writes the new rows inside one SQLite transaction, swaps the directory in
// and commits. A journal entry brackets the whole thing so Recover can
// finish or undo a submit interrupted by a crash.
package reconcile
