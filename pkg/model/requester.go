package model

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// Requester is the authenticated identity attached to a request by the
// upstream gateway. The service trusts the role as given and never validates
// credentials itself.
type Requester struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}
