// Package auth owns the credential side of the admin client: reading the
// current token pair, the single-flight refresh against the backend, the
// forced logout and the proactive refresh monitor.
package auth
