// Package remote implements the framed request/response protocol to a remote
// signing device reachable over TCP or a local stream socket, plus
// filesystem-backed softcard discovery.
//
// Every logical operation opens a fresh connection, exchanges its commands,
// and tears the connection down before returning. Connections are never
// pooled or shared between calls.
package remote

// Command is the protocol command name.
type Command string

// Protocol commands.
const (
	CommandListCertificates Command = "LIST_CERTIFICATES"
	CommandAuthenticate     Command = "AUTHENTICATE"
	CommandSignHash         Command = "SIGN_HASH"
	CommandSignData         Command = "SIGN_DATA"
	CommandGetCertificate   Command = "GET_CERTIFICATE"
	CommandPing             Command = "PING"
	CommandStatus           Command = "STATUS"
)

// Request is one framed protocol request.
// It is constructed per call and discarded once the response arrives.
type Request struct {
	Command       Command `json:"command"`
	KeyID         string  `json:"keyId,omitempty"`
	CardName      string  `json:"cardName,omitempty"`
	Passphrase    string  `json:"passphrase,omitempty"`
	DataHash      []byte  `json:"dataHash,omitempty"`
	HashAlgorithm string  `json:"hashAlgorithm,omitempty"`
	Data          []byte  `json:"data,omitempty"`
}

// Response is one framed protocol response.
type Response struct {
	Success      bool              `json:"success"`
	Data         string            `json:"data,omitempty"`
	Error        string            `json:"error,omitempty"`
	Certificates []CertificateInfo `json:"certificates,omitempty"`
	Signature    []byte            `json:"signature,omitempty"`
}

// CertificateInfo describes one signing identity held by the device.
type CertificateInfo struct {
	ID           string `json:"id"`
	Subject      string `json:"subject,omitempty"`
	Issuer       string `json:"issuer,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	ValidFrom    string `json:"validFrom,omitempty"`
	ValidTo      string `json:"validTo,omitempty"`
	PEM          string `json:"pem,omitempty"`
}
