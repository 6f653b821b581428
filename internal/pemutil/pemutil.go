// Package pemutil implements the PEM armor used for signed envelopes and
// certificates. It is a plain base64/DER codec: it attaches no cryptographic
// meaning to the bytes it carries.
package pemutil

import (
	"bytes"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// EnvelopeLabel is the armor label for signed envelopes.
const EnvelopeLabel = "PKCS11"

// CertificateLabel is the armor label for X.509 certificates.
const CertificateLabel = "CERTIFICATE"

var (
	// ErrNoPEMBlock indicates no BEGIN/END armor markers were found.
	ErrNoPEMBlock = errors.New("no PEM block found")

	// ErrInvalidBase64 indicates the armor body is not valid base64.
	ErrInvalidBase64 = errors.New("invalid base64 in PEM body")

	// ErrMismatchedLabel indicates the END label does not match the BEGIN label.
	ErrMismatchedLabel = errors.New("mismatched PEM BEGIN/END labels")
)

// Block is one decoded armor block.
type Block struct {
	Label string
	Bytes []byte
}

// Encode wraps DER bytes in PEM armor with the given label.
// The base64 body is wrapped at 64 characters per line.
func Encode(label string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: label, Bytes: der})
}

// Decode decodes the first armor block in data.
//
// Unlike encoding/pem, a block whose body is not valid base64 is reported as
// ErrInvalidBase64 rather than silently skipped. All whitespace inside the
// body is ignored.
func Decode(data []byte) (*Block, error) {
	blocks, err := DecodeAll(data)
	if err != nil {
		return nil, err
	}
	return blocks[0], nil
}

// DecodeAll decodes every armor block in data, in order of appearance.
// It fails with ErrNoPEMBlock if no block is found, and ErrInvalidBase64 if
// any block's body fails strict base64 decoding.
func DecodeAll(data []byte) ([]*Block, error) {
	var blocks []*Block
	rest := data
	for {
		block, remaining, err := decodeOne(rest)
		if err == errNoMoreBlocks {
			break
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
		rest = remaining
	}
	if len(blocks) == 0 {
		return nil, ErrNoPEMBlock
	}
	return blocks, nil
}

var errNoMoreBlocks = errors.New("no more blocks")

var (
	beginMarker = []byte("-----BEGIN ")
	endMarker   = []byte("-----END ")
	markerEnd   = []byte("-----")
)

// decodeOne scans for the next BEGIN/END pair and strictly decodes its body.
func decodeOne(data []byte) (*Block, []byte, error) {
	begin := bytes.Index(data, beginMarker)
	if begin < 0 {
		return nil, nil, errNoMoreBlocks
	}
	labelStart := begin + len(beginMarker)
	labelEnd := bytes.Index(data[labelStart:], markerEnd)
	if labelEnd < 0 {
		return nil, nil, errNoMoreBlocks
	}
	label := string(data[labelStart : labelStart+labelEnd])
	bodyStart := labelStart + labelEnd + len(markerEnd)

	end := bytes.Index(data[bodyStart:], endMarker)
	if end < 0 {
		return nil, nil, errNoMoreBlocks
	}
	body := data[bodyStart : bodyStart+end]

	endLabelStart := bodyStart + end + len(endMarker)
	endLabelLen := bytes.Index(data[endLabelStart:], markerEnd)
	if endLabelLen < 0 {
		return nil, nil, errNoMoreBlocks
	}
	if endLabel := string(data[endLabelStart : endLabelStart+endLabelLen]); endLabel != label {
		return nil, nil, fmt.Errorf("%w: BEGIN %s / END %s", ErrMismatchedLabel, label, endLabel)
	}
	rest := data[endLabelStart+endLabelLen+len(markerEnd):]

	der, err := decodeBody(body)
	if err != nil {
		return nil, nil, err
	}
	return &Block{Label: label, Bytes: der}, rest, nil
}

// decodeBody strips all whitespace and strictly base64-decodes the remainder.
func decodeBody(body []byte) ([]byte, error) {
	compact := make([]byte, 0, len(body))
	for _, c := range body {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			compact = append(compact, c)
		}
	}
	if len(compact)%4 != 0 {
		return nil, fmt.Errorf("%w: body length %d is not a multiple of 4", ErrInvalidBase64, len(compact))
	}
	der, err := base64.StdEncoding.Strict().DecodeString(string(compact))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return der, nil
}
