package user

// Principal identifies an authenticated account.
type Principal struct {
	UserID   string
	Username string
	Email    string
}
