package domain

// TicketPatch is the closed set of fields an update may touch. Nil means
// "leave unchanged"; the lifecycle engine decides exhaustively from these
// fields which deltas warrant an audit record, rather than trusting a
// caller-supplied shape.
type TicketPatch struct {
	CustomerName *string
	Product      *string
	IssueType    *string
	Description  *string
	Whatsapp     *string
	Status       *Status
	Priority     *Priority
	AssigneeIDs  []string
}

// Empty reports whether the patch touches nothing.
func (p TicketPatch) Empty() bool {
	return p.CustomerName == nil && p.Product == nil && p.IssueType == nil &&
		p.Description == nil && p.Whatsapp == nil && p.Status == nil &&
		p.Priority == nil && p.AssigneeIDs == nil
}
