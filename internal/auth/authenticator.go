package auth

// Authenticator issues and checks group join keys.
// This abstraction keeps the service layer independent of the hashing scheme.
type Authenticator interface {
	// Issue creates a new random join key. Only the returned hash is meant to be stored;
	// the key itself is shown to the group founder once.
	Issue() (key, hash string, err error)

	// Verify checks key against a stored hash. Returns ErrInvalidJoinKey on mismatch.
	Verify(hash, key string) error
}
