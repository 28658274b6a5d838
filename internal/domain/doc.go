// Package domain re-exports the plain state and wire types from domain/types
// and the store, service and transport contracts from domain/interfaces, so
// the rest of the module imports a single package.
package domain
