package core

import (
	"context"
	"qcledger/pkg/domain"
	"strings"
)

// CloneSuffix is appended to the source name when no clone name is given.
const CloneSuffix = " (копия)"

// idMap remaps identifiers of cloned records. Unknown ids resolve to absent.
type idMap map[string]string

func (m idMap) resolve(old string) string {
	if old == "" {
		return ""
	}
	return m[old]
}

func (m idMap) representatives(reps map[string]string) map[string]string {
	out := make(map[string]string, len(reps))
	for role, id := range reps {
		if mapped := m.resolve(id); mapped != "" {
			out[role] = mapped
		}
	}
	return out
}

func (m idMap) orgRoles(roles *domain.OrgRoles) {
	for _, ref := range roles.Refs() {
		*ref = m.resolve(*ref)
	}
}

// CloneObject copies every active record of sourceID into a new construction
// object under fresh identifiers, rewriting references through the new ids.
// Successor links between acts are not carried over and the trash is not
// copied. The whole graph is committed in a single transaction.
func (s *Service) CloneObject(ctx context.Context, sourceID, name string) (domain.ConstructionObject, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var created domain.ConstructionObject
	res, changes, err := s.run(ctx, "clone_object", func(tx domain.Transaction) error {
		view := tx.Snapshot()
		source, ok := view.FindObject(sourceID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityObject, ID: sourceID}
		}
		if strings.TrimSpace(name) == "" {
			name = source.Name + CloneSuffix
		}
		created = tx.PutObject(domain.ConstructionObject{Name: name, ShortName: source.ShortName})
		target := created.ID
		ids := idMap{}

		for _, org := range Scoped(view.ListOrganizations(), sourceID) {
			old := org.ID
			org.ID = tx.NewID()
			org.ConstructionObjectID = target
			ids[old] = tx.PutOrganization(org).ID
		}
		for _, p := range Scoped(view.ListPeople(), sourceID) {
			old := p.ID
			p.ID = tx.NewID()
			p.ConstructionObjectID = target
			ids[old] = tx.PutPerson(p).ID
		}
		for _, g := range Scoped(view.ListGroups(), sourceID) {
			old := g.ID
			g.ID = tx.NewID()
			g.ConstructionObjectID = target
			g.Representatives = ids.representatives(g.Representatives)
			ids.orgRoles(&g.OrgRoles)
			ids[old] = tx.PutGroup(g).ID
		}
		for _, a := range Scoped(view.ListActs(), sourceID) {
			a.ID = tx.NewID()
			a.ConstructionObjectID = target
			a.ObjectName = name
			a.Representatives = ids.representatives(a.Representatives)
			a.CommissionGroupID = ids.resolve(a.CommissionGroupID)
			ids.orgRoles(&a.OrgRoles)
			a.NextWorkActID = ""
			a.NextWork = ""
			tx.PutAct(a)
		}
		for _, c := range Scoped(view.ListCertificates(), sourceID) {
			c.ID = tx.NewID()
			c.ConstructionObjectID = target
			for i := range c.Files {
				c.Files[i].ID = tx.NewID()
			}
			tx.PutCertificate(c)
		}
		for _, r := range Scoped(view.ListRegulations(), sourceID) {
			r.ID = tx.NewID()
			r.ConstructionObjectID = target
			tx.PutRegulation(r)
		}
		return nil
	})
	if err != nil {
		return domain.ConstructionObject{}, res, err
	}
	s.resetHistoryIfActsChanged(changes)
	return created, res, nil
}
