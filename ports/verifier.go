package ports

// SignatureVerifier recovers the signing wallet from a message and a
// signature. Pure computation, no state.
type SignatureVerifier interface {
	// RecoverAddress returns the lowercase address that produced the
	// signature over message, or core.ErrInvalidSignature.
	RecoverAddress(message, signature string) (string, error)
}
