package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/buildmart-backend/api/responses"
	"github.com/angelmondragon/buildmart-backend/api/validators"
	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
)

// CatalogReader lists a vendor's priced materials and labor rates.
type CatalogReader interface {
	ListMaterials(ctx context.Context, vendorID uuid.UUID) ([]models.Material, error)
	ListLaborRates(ctx context.Context, vendorID uuid.UUID) ([]models.LaborRate, error)
}

type MaterialView struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

type LaborRateView struct {
	ID        uuid.UUID       `json:"id"`
	SkillName string          `json:"skill_name"`
	RateBasis enums.RateBasis `json:"rate_basis"`
	Rate      decimal.Decimal `json:"rate"`
}

type CatalogView struct {
	VendorID   uuid.UUID       `json:"vendor_id"`
	Materials  []MaterialView  `json:"materials"`
	LaborRates []LaborRateView `json:"labor_rates"`
}

// VendorCatalog returns the active materials and labor rates a vendor offers.
func VendorCatalog(catalog CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if catalog == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		materials, err := catalog.ListMaterials(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list materials"))
			return
		}
		rates, err := catalog.ListLaborRates(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list labor rates"))
			return
		}

		view := CatalogView{
			VendorID:   vendorID,
			Materials:  make([]MaterialView, 0, len(materials)),
			LaborRates: make([]LaborRateView, 0, len(rates)),
		}
		for _, m := range materials {
			view.Materials = append(view.Materials, MaterialView{
				ID:        m.ID,
				Name:      m.Name,
				Unit:      m.Unit,
				UnitPrice: m.UnitPrice,
				TaxRate:   m.TaxRate,
			})
		}
		for _, rate := range rates {
			view.LaborRates = append(view.LaborRates, LaborRateView{
				ID:        rate.ID,
				SkillName: rate.SkillName,
				RateBasis: rate.RateBasis,
				Rate:      rate.Rate,
			})
		}
		responses.WriteSuccess(w, view)
	}
}
