// Package domain contains the entities of the scheduling engine: cards,
// grades, review results and the mastery classification derived from them.
// Nothing in this package touches persistence or transport.
package domain
