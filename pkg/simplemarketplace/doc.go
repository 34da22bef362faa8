// Package simplemarketplace keeps a client-local session mirror consistent
// with an external authentication provider, and post documents consistent
// with the image blobs they reference, when the document store and the blob
// store are two independent systems with no shared transaction.
//
// The package is storage-agnostic: repositories, blob stores, auth providers
// and session slots are interfaces with pluggable backends under repo/,
// storage/, provider/ and sessionslot/.
package simplemarketplace
