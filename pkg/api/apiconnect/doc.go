// Package apiconnect wires the chama services to Connect: procedure paths,
// handler constructors and typed clients.
package apiconnect
