// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing call events and asserting on what
// observers received. They are not intended for production usage.
package testutil
