package model

// LocationAlias maps a free-text alias to a canonical location name within a
// company. Alias matching is case-insensitive.
type LocationAlias struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Alias     string `json:"alias"`
	Location  string `json:"location"`
}
