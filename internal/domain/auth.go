package domain

// Role is the caller's role as carried by the bearer token.
type Role string

const (
	RoleClient  Role = "client"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID string
	Role      Role
	// ClientID scopes client accounts to their own tickets.
	ClientID *string
}

// IsStaff reports whether the caller belongs to the support team.
func (p *Principal) IsStaff() bool {
	return p != nil && (p.Role == RoleSupport || p.Role == RoleAdmin)
}
