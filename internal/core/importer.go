package core

import (
	"context"
	"errors"
	"fmt"
	"qcledger/pkg/domain"
	"slices"
)

// ImportMode selects how incoming records are reconciled with a collection.
type ImportMode int

// Import modes.
const (
	// ImportReplace substitutes the whole collection.
	ImportReplace ImportMode = iota
	// ImportMerge overwrites or appends only the selected incoming records.
	ImportMerge
)

// ImportPolicy configures an import. SelectedIDs is consulted in merge mode
// only; for trash collections it holds the ids of the wrapped records. Resort
// orders the resulting acts and certificates by number.
type ImportPolicy struct {
	Mode        ImportMode
	SelectedIDs []string
	Resort      bool
}

// MergeRecords overwrites existing records with the selected incoming ones
// sharing their id and appends the novel ones. A non-nil cmp sorts the
// result stably.
func MergeRecords[T domain.Record[T]](existing, incoming []T, selectedIDs []string, cmp func(a, b T) int) []T {
	selected := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = struct{}{}
	}
	out := make([]T, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing))
	for _, v := range existing {
		index[v.RecordID()] = len(out)
		out = append(out, v.Clone())
	}
	for _, v := range incoming {
		if _, ok := selected[v.RecordID()]; !ok {
			continue
		}
		if i, ok := index[v.RecordID()]; ok {
			out[i] = v.Clone()
			continue
		}
		index[v.RecordID()] = len(out)
		out = append(out, v.Clone())
	}
	if cmp != nil {
		slices.SortStableFunc(out, cmp)
	}
	return out
}

var errMissingID = errors.New("record without id")

func applyCollection[T domain.Record[T]](policy ImportPolicy, existing, incoming []T, replace func([]T), cmp func(a, b T) int) error {
	for i, v := range incoming {
		if v.RecordID() == "" {
			return fmt.Errorf("item %d: %w", i, errMissingID)
		}
	}
	if !policy.Resort {
		cmp = nil
	}
	values := incoming
	if policy.Mode == ImportMerge {
		values = MergeRecords(existing, incoming, policy.SelectedIDs, cmp)
	} else if cmp != nil {
		values = slices.Clone(incoming)
		slices.SortStableFunc(values, cmp)
	}
	replace(values)
	return nil
}

func (s *Service) applyImport(tx domain.Transaction, key domain.CollectionKey, data domain.ImportData, policy ImportPolicy) error {
	view := tx.Snapshot()
	byNumber := func(a, b string) int { return s.names.Compare(a, b) }
	switch key {
	case domain.KeyObjects:
		return applyCollection(policy, view.ListObjects(), data.Objects, tx.ReplaceObjects, s.names.Objects)
	case domain.KeyOrganizations:
		return applyCollection(policy, view.ListOrganizations(), data.Organizations, tx.ReplaceOrganizations, s.names.Organizations)
	case domain.KeyPeople:
		return applyCollection(policy, view.ListPeople(), data.People, tx.ReplacePeople, s.names.People)
	case domain.KeyGroups:
		return applyCollection(policy, view.ListGroups(), data.Groups, tx.ReplaceGroups, s.names.Groups)
	case domain.KeyActs:
		return applyCollection(policy, view.ListActs(), data.Acts, tx.ReplaceActs, func(a, b domain.Act) int {
			return byNumber(a.Number, b.Number)
		})
	case domain.KeyDeletedActs:
		return applyCollection(policy, view.ListDeletedActs(), data.DeletedActs, tx.ReplaceDeletedActs, nil)
	case domain.KeyCertificates:
		return applyCollection(policy, view.ListCertificates(), data.Certificates, tx.ReplaceCertificates, func(a, b domain.Certificate) int {
			return byNumber(a.Number, b.Number)
		})
	case domain.KeyDeletedCertificates:
		return applyCollection(policy, view.ListDeletedCertificates(), data.DeletedCertificates, tx.ReplaceDeletedCertificates, nil)
	case domain.KeyRegulations:
		return applyCollection(policy, view.ListRegulations(), data.Regulations, tx.ReplaceRegulations, s.names.Regulations)
	default:
		return fmt.Errorf("unknown collection %q", key)
	}
}

// ImportCollection reconciles one collection of data with the store under
// policy. The collection is applied entirely or not at all. KeySettings
// replaces the present settings and templates and leaves act history alone.
func (s *Service) ImportCollection(ctx context.Context, key domain.CollectionKey, data domain.ImportData, policy ImportPolicy) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !data.Has(key) {
		return domain.Result{}, nil
	}
	if key == domain.KeySettings {
		s.applyImportedSettings(ctx, data)
		return domain.Result{}, nil
	}
	data = s.prepareImport(ctx, data, policy, key == domain.KeyObjects)
	res, err := s.importOne(ctx, key, data, policy)
	s.afterImport(ctx, []domain.CollectionKey{key})
	return res, err
}

func (s *Service) importOne(ctx context.Context, key domain.CollectionKey, data domain.ImportData, policy ImportPolicy) (domain.Result, error) {
	res, _, err := s.run(ctx, "import_"+string(key), func(tx domain.Transaction) error {
		return s.applyImport(tx, key, data, policy)
	})
	return res, err
}

// Import applies every present collection of data in dependency order, each
// in its own transaction. Rejected collections are reported together in a
// domain.ImportValidationError while the others stay applied. Settings and
// templates present in data replace the current ones. Act history is
// cleared.
func (s *Service) Import(ctx context.Context, data domain.ImportData, policy ImportPolicy) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data = s.prepareImport(ctx, data, policy, data.Has(domain.KeyObjects))
	var combined domain.Result
	var problems []domain.ImportProblem
	keys := data.Keys()
	for _, key := range keys {
		res, err := s.importOne(ctx, key, data, policy)
		combined.Merge(res)
		if err != nil {
			problems = append(problems, domain.ImportProblem{Key: key, Err: err})
		}
	}
	if data.Has(domain.KeySettings) {
		s.applyImportedSettings(ctx, data)
	}
	s.afterImport(ctx, keys)
	if len(problems) > 0 {
		return combined, domain.ImportValidationError{Problems: problems}
	}
	return combined, nil
}

// prepareImport picks the object that unscoped incoming records are assigned
// to: the current object when it survives the import, else the first
// incoming object, else the first-run default.
func (s *Service) prepareImport(ctx context.Context, data domain.ImportData, policy ImportPolicy, withObjects bool) domain.ImportData {
	replacing := withObjects && policy.Mode == ImportReplace && len(data.Objects) > 0
	if replacing && !slices.ContainsFunc(data.Objects, func(o domain.ConstructionObject) bool { return o.ID == s.current }) {
		s.setCurrent(ctx, data.Objects[0].ID)
	}
	if !replacing && s.current == "" {
		if _, err := s.ensureDefaultObject(ctx); err != nil {
			s.logger.Error("ensure default object failed", "error", err)
		}
	}
	return stampScope(data, s.current)
}

// afterImport drops records left without an object, clears act history and
// repairs the current object id.
func (s *Service) afterImport(ctx context.Context, keys []domain.CollectionKey) {
	if slices.Contains(keys, domain.KeyObjects) {
		if _, _, err := s.run(ctx, "sweep_orphans", sweepOrphans); err != nil {
			s.logger.Error("orphan sweep failed", "error", err)
		}
	}
	s.history.reset()
	if _, err := s.ensureDefaultObject(ctx); err != nil {
		s.logger.Error("ensure default object failed", "error", err)
	}
}

func sweepOrphans(tx domain.Transaction) error {
	view := tx.Snapshot()
	live := make(map[string]struct{})
	for _, o := range view.ListObjects() {
		live[o.ID] = struct{}{}
	}
	orphaned := make(map[string]struct{})
	collect := func(id string, scoped domain.Scoped) {
		if _, ok := live[scoped.ObjectID()]; !ok {
			orphaned[scoped.ObjectID()] = struct{}{}
		}
	}
	visitScoped(view.ListPeople(), collect)
	visitScoped(view.ListOrganizations(), collect)
	visitScoped(view.ListGroups(), collect)
	visitScoped(view.ListActs(), collect)
	visitScoped(view.ListCertificates(), collect)
	visitScoped(view.ListRegulations(), collect)
	visitScoped(view.ListDeletedActs(), collect)
	visitScoped(view.ListDeletedCertificates(), collect)
	for objectID := range orphaned {
		purgeScope(tx, objectID)
	}
	return nil
}

// stampScope assigns records without an object to objectID, the upgrade path
// for backups written before objects existed.
func stampScope(data domain.ImportData, objectID string) domain.ImportData {
	if objectID == "" {
		return data
	}
	data.People = stamp(data.People, objectID, func(v *domain.Person) *string { return &v.ConstructionObjectID })
	data.Organizations = stamp(data.Organizations, objectID, func(v *domain.Organization) *string { return &v.ConstructionObjectID })
	data.Groups = stamp(data.Groups, objectID, func(v *domain.CommissionGroup) *string { return &v.ConstructionObjectID })
	data.Acts = stamp(data.Acts, objectID, func(v *domain.Act) *string { return &v.ConstructionObjectID })
	data.Certificates = stamp(data.Certificates, objectID, func(v *domain.Certificate) *string { return &v.ConstructionObjectID })
	data.Regulations = stamp(data.Regulations, objectID, func(v *domain.Regulation) *string { return &v.ConstructionObjectID })
	data.DeletedActs = stamp(data.DeletedActs, objectID, func(v *domain.DeletedActEntry) *string { return &v.Act.ConstructionObjectID })
	data.DeletedCertificates = stamp(data.DeletedCertificates, objectID, func(v *domain.DeletedCertificateEntry) *string {
		return &v.Certificate.ConstructionObjectID
	})
	return data
}

func stamp[T any](values []T, objectID string, field func(*T) *string) []T {
	if values == nil {
		return nil
	}
	out := slices.Clone(values)
	for i := range out {
		if ref := field(&out[i]); *ref == "" {
			*ref = objectID
		}
	}
	return out
}

// Export returns every collection together with the settings and templates.
func (s *Service) Export(ctx context.Context) domain.ImportData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.store.ExportState()
	project := s.settings.Project
	return domain.ImportData{
		Objects:             nonNil(snap.Objects),
		Acts:                nonNil(snap.Acts),
		DeletedActs:         nonNil(snap.DeletedActs),
		People:              nonNil(snap.People),
		Organizations:       nonNil(snap.Organizations),
		Groups:              nonNil(snap.Groups),
		Certificates:        nonNil(snap.Certificates),
		DeletedCertificates: nonNil(snap.DeletedCertificates),
		Regulations:         nonNil(snap.Regulations),
		Template:            s.settings.Template,
		RegistryTemplate:    s.settings.RegistryTemplate,
		ProjectSettings:     &project,
	}
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
