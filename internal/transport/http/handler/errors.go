package handler

const (
	errInternalServer     = "Internal server error"
	errDuplicateEmail     = "Email already exists"
	errInvalidCredentials = "Invalid credentials"
)
