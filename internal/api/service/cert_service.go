package service

import (
	"fmt"
	"time"

	"github.com/signbridge/signbridge/internal/api/dto"
	"github.com/signbridge/signbridge/internal/certchain"
	"github.com/signbridge/signbridge/internal/pemutil"
)

// CertService inspects certificate material.
type CertService struct{}

// NewCertService creates a CertService.
func NewCertService() *CertService {
	return &CertService{}
}

// Inspect parses PEM certificates and reports their attributes.
func (s *CertService) Inspect(req *dto.InspectRequest) (*dto.InspectResponse, error) {
	pemText, err := req.Certificates.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: certificates: %v", ErrInvalidRequest, err)
	}

	chain, err := certchain.ParseChain(pemText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return &dto.InspectResponse{Chain: CertificateItems(chain)}, nil
}

// CertificateItems converts a chain to its transfer representation.
func CertificateItems(chain certchain.Chain) []dto.CertificateItem {
	items := make([]dto.CertificateItem, 0, len(chain))
	for _, cert := range chain {
		x := cert.X509()
		items = append(items, dto.CertificateItem{
			Subject: x.Subject.String(),
			Issuer:  x.Issuer.String(),
			Serial:  cert.SerialNumber().String(),
			Validity: dto.ValidityInfo{
				NotBefore: cert.NotBefore().UTC().Format(time.RFC3339),
				NotAfter:  cert.NotAfter().UTC().Format(time.RFC3339),
			},
			SelfSigned: cert.IsSelfSigned(),
			PEM:        string(pemutil.Encode(pemutil.CertificateLabel, cert.Raw())),
		})
	}
	return items
}
