package database

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
)

// PropertyProvider is the relational inventory backend.
type PropertyProvider struct {
	base
}

func NewPropertyProvider(db *gorm.DB, logger *zap.Logger, opts ...Option) *PropertyProvider {
	return &PropertyProvider{base: newBase(db, logger, opts)}
}

func (p *PropertyProvider) Backend() string { return backendName }

func (p *PropertyProvider) GetAll(ctx context.Context) ([]domain.Property, error) {
	var rows []propertyRow
	if err := p.db.WithContext(ctx).Order("tower ASC").Order("unit_number ASC").Find(&rows).Error; err != nil {
		return nil, p.fail("PropertyProvider.GetAll", err)
	}
	out := make([]domain.Property, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (p *PropertyProvider) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	prop, err := p.get(p.db.WithContext(ctx), id)
	if err != nil {
		return nil, p.fail("PropertyProvider.GetByID", err)
	}
	return prop, nil
}

func (p *PropertyProvider) get(db *gorm.DB, id string) (*domain.Property, error) {
	var row propertyRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	prop := row.toDomain()
	return &prop, nil
}

func (p *PropertyProvider) Create(ctx context.Context, in domain.PropertyInput) (*domain.Property, error) {
	if err := in.Check(); err != nil {
		return nil, err
	}
	prop := in.NewProperty(uuid.NewString(), p.stamp())
	row := propertyRow{
		ID:              prop.ID,
		Tower:           prop.Tower,
		UnitNumber:      prop.UnitNumber,
		Floor:           prop.Floor,
		Typology:        prop.Typology,
		SqmConstruction: prop.SqmConstruction,
		SqmTerrace:      prop.SqmTerrace,
		ListPrice:       prop.ListPrice,
		Status:          string(prop.Status),
		Description:     prop.Description,
		Attachments:     prop.Attachments,
		CreatedAt:       prop.CreatedAt,
		UpdatedAt:       prop.UpdatedAt,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, p.fail("PropertyProvider.Create", err)
	}
	return &prop, nil
}

// Update merges patch in one conditional write keyed on the row's previous
// updated_at, so a concurrent writer surfaces as ErrConcurrentModification.
func (p *PropertyProvider) Update(ctx context.Context, id string, patch domain.PropertyPatch) (*domain.Property, error) {
	if err := patch.Check(); err != nil {
		return nil, err
	}
	var out *domain.Property
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := p.get(tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return &domain.ErrNotFound{Resource: "property", ID: id}
		}
		if patch.ExpectStatus != nil && current.Status != *patch.ExpectStatus {
			return &domain.ErrConcurrentModification{Resource: "property", ID: id, Field: "status"}
		}

		values := patchValues(patch)
		values["updated_at"] = p.after(current.UpdatedAt)
		res := tx.Model(&propertyRow{}).
			Where("id = ? AND updated_at = ?", id, current.UpdatedAt).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &domain.ErrConcurrentModification{Resource: "property", ID: id, Field: "updated_at"}
		}
		out, err = p.get(tx, id)
		return err
	})
	if err != nil {
		return nil, p.fail("PropertyProvider.Update", err)
	}
	return out, nil
}

func patchValues(patch domain.PropertyPatch) map[string]any {
	values := map[string]any{}
	if patch.Tower != nil {
		values["tower"] = *patch.Tower
	}
	if patch.UnitNumber != nil {
		values["unit_number"] = *patch.UnitNumber
	}
	if patch.Floor != nil {
		values["floor"] = *patch.Floor
	}
	if patch.Typology != nil {
		values["typology"] = *patch.Typology
	}
	if patch.SqmConstruction != nil {
		values["sqm_construction"] = *patch.SqmConstruction
	}
	if patch.SqmTerrace != nil {
		values["sqm_terrace"] = *patch.SqmTerrace
	}
	if patch.ListPrice != nil {
		values["list_price"] = *patch.ListPrice
	}
	if patch.Status != nil {
		values["status"] = string(*patch.Status)
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if patch.Attachments != nil {
		values["attachments"] = gorm.Expr("?", jsonList(*patch.Attachments))
	}
	return values
}

func (p *PropertyProvider) Remove(ctx context.Context, id string) error {
	res := p.db.WithContext(ctx).Where("id = ?", id).Delete(&propertyRow{})
	if res.Error != nil {
		return p.fail("PropertyProvider.Remove", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "property", ID: id}
	}
	return nil
}
