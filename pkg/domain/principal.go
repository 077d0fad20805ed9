package domain

// Principal is the authenticated caller established by the token guards.
type Principal struct {
	UserID   UserID
	Username string
	RawToken string
	Verified bool
}
