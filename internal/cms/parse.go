package cms

import (
	"encoding/asn1"
	"fmt"
)

// Parse parses a DER-encoded ContentInfo carrying SignedData.
func Parse(der []byte) (*SignedData, error) {
	var contentInfo ContentInfo
	rest, err := asn1.Unmarshal(der, &contentInfo)
	if err != nil {
		return nil, &Error{Op: "parse", Err: fmt.Errorf("failed to parse ContentInfo: %w", err)}
	}
	if len(rest) > 0 {
		return nil, &Error{Op: "parse", Err: fmt.Errorf("%d trailing bytes after ContentInfo", len(rest))}
	}
	if !contentInfo.ContentType.Equal(OIDSignedData) {
		return nil, &Error{Op: "parse", Err: fmt.Errorf("%w: content type %v", ErrNotSignedData, contentInfo.ContentType)}
	}

	var signedData SignedData
	if _, err := asn1.Unmarshal(contentInfo.Content.Bytes, &signedData); err != nil {
		return nil, &Error{Op: "parse", Err: fmt.Errorf("failed to parse SignedData: %w", err)}
	}
	return &signedData, nil
}
