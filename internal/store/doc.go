// Package store holds the tracker's record collections and persists them
// through a kv.Backend.
//
// # Collections
//
// Seven collections are kept, each stored as a JSON array under its own key:
//
//   - workouts, meditations, code, goals
//   - achievements, program, testResults
//
// Every record is a flat map of primitive values plus a system-assigned "id".
//
// # Writes
//
// Add and Update run the collection validator first, then escape every string
// field before it is stored. Every mutation ends with Save, which writes all
// collections in one backend call.
//
// When Save fails the in-memory change is kept and the *SaveError is returned
// (KeepOnSaveFailure). Construct the store with
// WithSaveFailurePolicy(RollbackOnSaveFailure) to undo the change instead.
//
// # Error Handling
//
//   - *ValidationError: the candidate record was rejected, nothing changed
//   - *SaveError: the backend write failed; Reason tells quota from outage
//   - *FormatError: an import document has the wrong shape
//   - ErrNotFound: no record with the given id
//   - ErrNotConfirmed: a destructive call was made without confirmation
//
// # Degraded Mode
//
// If the backend fails its availability check during Load, the store keeps
// working in memory for the rest of the session and every Save reports
// ReasonUnavailable.
package store
