package models

// City is a discovery location creatives and jobs are grouped under.
type City struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}
