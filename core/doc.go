// Package core contains the canonical admin client contracts: credential
// pairs, request descriptors, the uniform response envelope, pagination
// shapes, configuration and the ambient logging/metrics/error plumbing.
// Lower-level packages (transport, envelope, pagination, auth, client)
// depend on this package; core must not depend on any of them.
package core
