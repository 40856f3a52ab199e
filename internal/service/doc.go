// Package service contains the application use cases of the engine. It
// orchestrates the scheduler in internal/domain/srs and the persistence
// ports in internal/store.
//
// CardRepository owns every change to a card: creation, grading inside a
// transaction with an optimistic version check, suspension, postponement and
// archiving of mastered cards. StatsService answers read-only questions about
// an owner's progress.
//
// Errors:
//   - Service methods return sentinel errors for expected conditions
//     (ErrCardNotFound, ErrCardNotOwned, ErrDuplicateCard, ErrCardInactive).
//   - Unexpected errors are wrapped in ServiceError, which keeps the store
//     error reachable through errors.Is so callers can tell a transient
//     failure (store.ErrStoreTimeout, store.ErrConcurrentModification) from
//     a permanent one.
//
// The package depends on store interfaces only, never on a dialect.
package service
