package dto

// RemoteCertificate describes one signing identity held by the device.
type RemoteCertificate struct {
	ID           string `json:"id"`
	Subject      string `json:"subject,omitempty"`
	Issuer       string `json:"issuer,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	ValidFrom    string `json:"valid_from,omitempty"`
	ValidTo      string `json:"valid_to,omitempty"`
}

// RemoteCertificatesResponse lists the device's signing identities.
type RemoteCertificatesResponse struct {
	Certificates []RemoteCertificate `json:"certificates"`
}

// SoftCardItem describes one filesystem-backed card.
type SoftCardItem struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Valid        bool     `json:"valid"`
	Certificates []string `json:"certificates,omitempty"`
	Subject      string   `json:"subject,omitempty"`
	Issuer       string   `json:"issuer,omitempty"`
}

// SoftCardsResponse lists discovered softcards.
type SoftCardsResponse struct {
	Cards []SoftCardItem `json:"cards"`
}

// RemotePingResponse reports device liveness.
type RemotePingResponse struct {
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}
