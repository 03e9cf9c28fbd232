package dto

// MemberResponse is the display identity used in assignment pickers and on
// ticket cards.
type MemberResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
