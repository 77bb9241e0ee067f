// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing simulation states and action outcomes. They
// are not intended for production usage.
package testutil
