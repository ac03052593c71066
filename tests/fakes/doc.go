// Package fakes provides in-memory fake cloud SDK clients for testing the
// configuration sources without network access.
package fakes
