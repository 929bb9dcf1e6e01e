package arenadto

// CreateGameRequest opens a new session. Color is white, black, or random;
// TimeControl uses the "base+increment" form, e.g. "5+3".
type CreateGameRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	TimeControl string `json:"time_control,omitempty"`
}

// ActionRequest covers the per-game POST operations. From/To/Promotion apply
// to moves; Action selects the draw sub-operation (offer, accept, decline).
type ActionRequest struct {
	Name      string `json:"name"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
	Action    string `json:"action,omitempty"`
}
