package ports

// LinkTokenizer mints and validates the short-lived tokens embedded in
// signer-page links, binding the HTTP callback to a requester.
type LinkTokenizer interface {
	Mint(requesterID string) (string, error)
	RequesterID(token string) (string, error)
}
