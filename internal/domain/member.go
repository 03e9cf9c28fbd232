package domain

// Member is a user's membership record within a tenant (an organization, the
// unit of data isolation), distinct from the user's global identity.
// Assignment sets reference members, not users. Tenant and member management
// happen in an external identity service; this service only reads members.
type Member struct {
	ID       string
	TenantID string
	UserID   string
	Name     string
	Email    string
}
