// Package review_session runs interactive review sessions.
//
// A session takes a snapshot of the owner's due cards when it starts and
// walks through it in order. Each answer is graded by the scheduler and
// persisted through service.CardRepository before the session advances.
// Cards graded during a session keep their new schedule even if the session
// is abandoned.
//
// Sessions live in memory, one per owner:
//
//	idle -> loaded -> reviewing -> complete
//
// The loaded state only exists while the queue is being fetched.
package review_session
