// internal/services/masters/service.go
package masters

import (
	"context"
	"errors"
	"time"

	"loan-management-service/internal/common/config"
	"loan-management-service/internal/common/database"
	apperrors "loan-management-service/internal/common/errors"
	"loan-management-service/internal/common/logger"
	"loan-management-service/internal/models"
)

const (
	districtsCollection = "masters/locations/districts"
	talukasCollection   = "masters/locations/talukas"
	villagesCollection  = "masters/locations/villages"

	// legacyDocPath is the old single-document layout holding three arrays.
	legacyDocPath = "masters/locations"
)

// Service serves the district/taluka/village reference hierarchy. Reads go
// through a TTL cache; mutations enforce that a child only ever references
// an existing, active parent, then invalidate the cache.
type Service struct {
	store database.DocumentStore
	cache *Cache
	log   logger.Logger

	now func() time.Time
}

// NewService creates the masters service.
func NewService(store database.DocumentStore, log logger.Logger, cfg config.MastersConfig) *Service {
	ttl := time.Duration(cfg.CacheTTL) * time.Millisecond
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		store: store,
		cache: NewCache(ttl),
		log:   log,
		now:   time.Now,
	}
}

// GetMasters returns the full hierarchy, served from cache when fresh.
func (s *Service) GetMasters(ctx context.Context) (*models.MastersData, error) {
	return s.cache.Get(ctx, s.load)
}

// DistrictTalukas returns the active talukas of a district.
func (s *Service) DistrictTalukas(ctx context.Context, districtCode string) ([]models.Taluka, error) {
	data, err := s.GetMasters(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Taluka
	for _, t := range data.Talukas {
		if t.DistrictCode == districtCode && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

// TalukaVillages returns the active villages of a taluka.
func (s *Service) TalukaVillages(ctx context.Context, talukaCode string) ([]models.Village, error) {
	data, err := s.GetMasters(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Village
	for _, v := range data.Villages {
		if v.TalukaCode == talukaCode && v.Active {
			out = append(out, v)
		}
	}
	return out, nil
}

// ============================================================================
// District CRUD
// ============================================================================

// AddDistrict creates a district. New entries always start active.
func (s *Service) AddDistrict(ctx context.Context, district models.District) error {
	if err := requireCode(district.Code); err != nil {
		return err
	}

	now := s.now().UTC()
	district.Active = true
	district.CreatedAt = now
	district.UpdatedAt = now

	data, err := database.ToMap(district)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, districtsCollection+"/"+district.Code, data); err != nil {
		return apperrors.NewStoreWriteFailedError(err)
	}
	s.cache.Invalidate()
	return nil
}

// UpdateDistrict applies partial field updates to a district.
func (s *Service) UpdateDistrict(ctx context.Context, code string, fields map[string]interface{}) error {
	return s.update(ctx, districtsCollection+"/"+code, fields)
}

// DeleteDistrict removes a district.
func (s *Service) DeleteDistrict(ctx context.Context, code string) error {
	return s.delete(ctx, districtsCollection+"/"+code)
}

// ============================================================================
// Taluka CRUD
// ============================================================================

// AddTaluka creates a taluka under a district. The district must exist and
// be active.
func (s *Service) AddTaluka(ctx context.Context, districtCode string, taluka models.Taluka) error {
	if err := requireCode(taluka.Code); err != nil {
		return err
	}
	if _, err := s.requireActive(ctx, districtsCollection+"/"+districtCode, "district", districtCode); err != nil {
		return err
	}

	now := s.now().UTC()
	taluka.DistrictCode = districtCode
	taluka.Active = true
	taluka.CreatedAt = now
	taluka.UpdatedAt = now

	data, err := database.ToMap(taluka)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, talukasCollection+"/"+taluka.Code, data); err != nil {
		return apperrors.NewStoreWriteFailedError(err)
	}
	s.cache.Invalidate()
	return nil
}

// UpdateTaluka applies partial field updates to a taluka.
func (s *Service) UpdateTaluka(ctx context.Context, code string, fields map[string]interface{}) error {
	return s.update(ctx, talukasCollection+"/"+code, fields)
}

// DeleteTaluka removes a taluka.
func (s *Service) DeleteTaluka(ctx context.Context, code string) error {
	return s.delete(ctx, talukasCollection+"/"+code)
}

// ============================================================================
// Village CRUD
// ============================================================================

// AddVillage creates a village under a taluka. The taluka must exist and be
// active; the district code is denormalised from it.
func (s *Service) AddVillage(ctx context.Context, talukaCode string, village models.Village) error {
	if err := requireCode(village.Code); err != nil {
		return err
	}
	parent, err := s.requireActive(ctx, talukasCollection+"/"+talukaCode, "taluka", talukaCode)
	if err != nil {
		return err
	}

	var taluka models.Taluka
	if err := database.FromMap(parent, &taluka); err != nil {
		return err
	}

	now := s.now().UTC()
	village.TalukaCode = talukaCode
	village.DistrictCode = taluka.DistrictCode
	village.Active = true
	village.CreatedAt = now
	village.UpdatedAt = now

	data, err := database.ToMap(village)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, villagesCollection+"/"+village.Code, data); err != nil {
		return apperrors.NewStoreWriteFailedError(err)
	}
	s.cache.Invalidate()
	return nil
}

// UpdateVillage applies partial field updates to a village.
func (s *Service) UpdateVillage(ctx context.Context, code string, fields map[string]interface{}) error {
	return s.update(ctx, villagesCollection+"/"+code, fields)
}

// DeleteVillage removes a village.
func (s *Service) DeleteVillage(ctx context.Context, code string) error {
	return s.delete(ctx, villagesCollection+"/"+code)
}

// ============================================================================
// Internals
// ============================================================================

func (s *Service) update(ctx context.Context, path string, fields map[string]interface{}) error {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)

	if err := s.store.Update(ctx, path, merged); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.NewRecordNotFoundError(path)
		}
		return apperrors.NewStoreWriteFailedError(err)
	}
	s.cache.Invalidate()
	return nil
}

func (s *Service) delete(ctx context.Context, path string) error {
	if err := s.store.Delete(ctx, path); err != nil {
		return apperrors.NewStoreWriteFailedError(err)
	}
	s.cache.Invalidate()
	return nil
}

// requireCode rejects entries without a code; an empty code would otherwise
// produce a malformed document path deep inside the store.
func requireCode(code string) error {
	if code == "" {
		return apperrors.NewValidationFailedError(map[string]interface{}{"code": "code is required"})
	}
	return nil
}

func (s *Service) requireActive(ctx context.Context, path, kind, code string) (map[string]interface{}, error) {
	data, err := s.store.Get(ctx, path)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NewMastersParentMissingError(kind, code)
	}
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}
	if active, ok := data["active"].(bool); ok && !active {
		return nil, apperrors.NewMastersParentMissingError(kind, code)
	}
	return data, nil
}

// defaultActive marks a record active when the flag predates it.
func defaultActive(m map[string]interface{}) {
	if _, present := m["active"]; !present {
		m["active"] = true
	}
}

// load reads the hierarchy from the store: the per-code subcollections when
// present, otherwise the legacy single-document layout.
func (s *Service) load(ctx context.Context) (*models.MastersData, error) {
	districts, err := s.store.List(ctx, districtsCollection, database.Query{})
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}

	if len(districts) > 0 {
		return s.loadSubcollections(ctx, districts)
	}
	return s.loadLegacy(ctx)
}

func (s *Service) loadSubcollections(ctx context.Context, districtDocs []database.Document) (*models.MastersData, error) {
	data := &models.MastersData{
		Districts: []models.District{},
		Talukas:   []models.Taluka{},
		Villages:  []models.Village{},
	}

	for _, doc := range districtDocs {
		defaultActive(doc.Data)
		var d models.District
		if err := database.FromMap(doc.Data, &d); err != nil {
			return nil, err
		}
		if d.Code == "" {
			d.Code = doc.ID
		}
		data.Districts = append(data.Districts, d)
	}

	talukaDocs, err := s.store.List(ctx, talukasCollection, database.Query{})
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}
	for _, doc := range talukaDocs {
		defaultActive(doc.Data)
		var t models.Taluka
		if err := database.FromMap(doc.Data, &t); err != nil {
			return nil, err
		}
		if t.Code == "" {
			t.Code = doc.ID
		}
		data.Talukas = append(data.Talukas, t)
	}

	villageDocs, err := s.store.List(ctx, villagesCollection, database.Query{})
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}
	for _, doc := range villageDocs {
		defaultActive(doc.Data)
		var v models.Village
		if err := database.FromMap(doc.Data, &v); err != nil {
			return nil, err
		}
		if v.Code == "" {
			v.Code = doc.ID
		}
		data.Villages = append(data.Villages, v)
	}

	return data, nil
}

func (s *Service) loadLegacy(ctx context.Context) (*models.MastersData, error) {
	raw, err := s.store.Get(ctx, legacyDocPath)
	if errors.Is(err, database.ErrNotFound) {
		s.log.Warn("masters data not found in either layout", nil)
		return &models.MastersData{
			Districts: []models.District{},
			Talukas:   []models.Taluka{},
			Villages:  []models.Village{},
		}, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreReadFailedError(err)
	}

	// the legacy layout predates the active flag; missing means active
	for _, key := range []string{"districts", "talukas", "villages"} {
		entries, _ := raw[key].([]interface{})
		for _, e := range entries {
			if m, ok := e.(map[string]interface{}); ok {
				if _, present := m["active"]; !present {
					m["active"] = true
				}
			}
		}
	}

	var data models.MastersData
	if err := database.FromMap(raw, &data); err != nil {
		return nil, err
	}
	if data.Districts == nil {
		data.Districts = []models.District{}
	}
	if data.Talukas == nil {
		data.Talukas = []models.Taluka{}
	}
	if data.Villages == nil {
		data.Villages = []models.Village{}
	}
	return &data, nil
}
