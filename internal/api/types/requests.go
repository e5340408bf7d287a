package types

// ClanCreateRequest is the POST /clans body.
type ClanCreateRequest struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}
