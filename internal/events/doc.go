// Package events carries review lifecycle notifications between components.
//
// The session manager emits an Event when a card is graded and when a session
// completes. Handlers registered with an EventEmitter react to them without
// the emitter knowing who listens.
package events
