package usecase

import "time"

const (
	// StartingGrant is the balance seeded into every new account at signup.
	StartingGrant = "10000"

	// DirectoryCacheTTL is how long the account directory listing is cached.
	DirectoryCacheTTL = 5 * time.Minute
)
