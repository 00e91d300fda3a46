package types

// UserResponse is the public shape of a user. The password hash never
// appears here.
type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}
