// Package transfer defines the collection delta exchanged between the
// client and the server: kept images by reference, new images inline as
// base-64, and removed images by reference. It also owns the JSON wire
// shape of the upload request and the error kinds shared by both sides.
package transfer
