package models

// StatusResponse is returned by the health endpoint.
type StatusResponse struct {
	Status        string  `json:"status"`
	PeerCount     int     `json:"peerCount"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// PeerListResponse is returned by the discovery endpoint.
type PeerListResponse struct {
	Peers []string `json:"peers"`
	Count int      `json:"count"`
}
