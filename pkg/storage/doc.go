// Package storage provides utilities shared across credential store
// implementations, currently the sentinel errors adapters return.
//
// Adapters (memory, postgres) implement auth.CredentialStore for the
// read path and account.Store for writes. Both interfaces are defined by
// their consumers; this package holds no interface of its own.
package storage
