package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"qcledger/pkg/domain"
	"strings"
)

// ErrNoTemplate is returned by RenderAct when no act template is configured.
var ErrNoTemplate = errors.New("act template is not configured")

// ActDocument resolves every reference of an act for rendering. Certificates
// are matched by their number appearing in the act's materials text.
func (s *Service) ActDocument(ctx context.Context, actID string) (domain.ActDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := s.view(ctx)
	act, ok := view.FindAct(actID)
	if !ok {
		return domain.ActDocument{}, domain.NotFoundError{Entity: domain.EntityAct, ID: actID}
	}
	doc := domain.ActDocument{Act: act, Representatives: make(map[string]domain.Person, len(act.Representatives))}
	doc.Object, _ = view.FindObject(act.ConstructionObjectID)
	if g, ok := view.FindGroup(act.CommissionGroupID); ok {
		doc.Group = &g
	}
	for role, id := range act.Representatives {
		if p, ok := view.FindPerson(id); ok {
			doc.Representatives[role] = p
		}
	}
	org := func(id string) *domain.Organization {
		if o, ok := view.FindOrganization(id); ok {
			return &o
		}
		return nil
	}
	doc.Builder = org(act.BuilderOrgID)
	doc.Contractor = org(act.ContractorOrgID)
	doc.Designer = org(act.DesignerOrgID)
	doc.WorkPerformer = org(act.WorkPerformerOrgID)
	for _, c := range Scoped(view.ListCertificates(), act.ConstructionObjectID) {
		if c.Number != "" && strings.Contains(act.Materials, c.Number) {
			doc.Certificates = append(doc.Certificates, c)
		}
	}
	return doc, nil
}

// RenderAct renders an act with the configured template.
func (s *Service) RenderAct(ctx context.Context, actID string, renderer domain.DocumentRenderer) ([]byte, error) {
	doc, err := s.ActDocument(ctx, actID)
	if err != nil {
		return nil, err
	}
	encoded := s.Settings().Template
	if encoded == "" {
		return nil, ErrNoTemplate
	}
	template, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode act template: %w", err)
	}
	out, err := renderer.Render(ctx, doc, template)
	if err != nil {
		return nil, fmt.Errorf("render act %s: %w", actID, err)
	}
	return out, nil
}
