// Package testutils holds helpers shared by tests across packages: migrated
// throwaway databases, card fixtures and bearer tokens.
package testutils
