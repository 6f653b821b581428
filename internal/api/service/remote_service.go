package service

import (
	"context"
	"errors"

	"github.com/signbridge/signbridge/internal/api/dto"
	"github.com/signbridge/signbridge/internal/audit"
	"github.com/signbridge/signbridge/internal/remote"
)

// ErrNoRemote indicates the server was started without a remote device.
var ErrNoRemote = errors.New("no remote device configured")

// RemoteService exposes remote device discovery over the API.
type RemoteService struct {
	client       *remote.Client
	softcardRoot string
	auditLog     audit.Writer
}

// NewRemoteService creates a RemoteService. client may be nil when no
// device is configured; softcard discovery still works.
func NewRemoteService(client *remote.Client, softcardRoot string, auditLog audit.Writer) *RemoteService {
	if auditLog == nil {
		auditLog = audit.NopWriter{}
	}
	return &RemoteService{client: client, softcardRoot: softcardRoot, auditLog: auditLog}
}

// Certificates lists the device's signing identities.
func (s *RemoteService) Certificates(ctx context.Context) (*dto.RemoteCertificatesResponse, error) {
	if s.client == nil {
		return nil, ErrNoRemote
	}

	certs, err := s.client.ListCertificates(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.RemoteCertificatesResponse{
		Certificates: make([]dto.RemoteCertificate, 0, len(certs)),
	}
	for _, c := range certs {
		resp.Certificates = append(resp.Certificates, dto.RemoteCertificate{
			ID:           c.ID,
			Subject:      c.Subject,
			Issuer:       c.Issuer,
			SerialNumber: c.SerialNumber,
			ValidFrom:    c.ValidFrom,
			ValidTo:      c.ValidTo,
		})
	}
	return resp, nil
}

// SoftCards scans the configured root for cards.
func (s *RemoteService) SoftCards(ctx context.Context) (*dto.SoftCardsResponse, error) {
	if s.softcardRoot == "" {
		return nil, ErrNoRemote
	}

	cards, err := remote.ListSoftCards(s.softcardRoot)

	result := audit.ResultSuccess
	reason := ""
	if err != nil {
		result = audit.ResultFailure
		reason = err.Error()
	}
	event := audit.NewEvent(audit.EventSoftCardList, result).
		WithObject(audit.Object{Type: "softcard", Path: s.softcardRoot}).
		WithContext(audit.Context{Reason: reason})
	if auditErr := s.auditLog.Write(event); auditErr != nil {
		return nil, auditErr
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.SoftCardsResponse{Cards: make([]dto.SoftCardItem, 0, len(cards))}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, dto.SoftCardItem{
			Name:         card.Name,
			Path:         card.Path,
			Valid:        card.Valid,
			Certificates: card.Certificates,
			Subject:      card.Subject,
			Issuer:       card.Issuer,
		})
	}
	return resp, nil
}

// Ping checks device liveness.
func (s *RemoteService) Ping(ctx context.Context) (*dto.RemotePingResponse, error) {
	if s.client == nil {
		return nil, ErrNoRemote
	}

	if err := s.client.Ping(ctx); err != nil {
		return &dto.RemotePingResponse{Reachable: false, Error: err.Error()}, nil
	}
	return &dto.RemotePingResponse{Reachable: true}, nil
}
