// Package envelope turns raw backend bodies into the uniform core.Envelope
// contract. It never returns errors: malformed input degrades to a best
// effort message.
package envelope
