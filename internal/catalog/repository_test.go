package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/buildmart-backend/pkg/db/models"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
)

func openCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Material{}, &models.LaborRate{}))
	return conn
}

func TestMaterialPriceIsScopedToVendor(t *testing.T) {
	repo := NewRepository(openCatalogDB(t))
	ctx := context.Background()
	vendorID := uuid.New()

	material := &models.Material{
		VendorID:  vendorID,
		Name:      "TMT bar 12mm",
		Unit:      "kg",
		UnitPrice: decimal.RequireFromString("68.50"),
		TaxRate:   decimal.RequireFromString("18"),
		Active:    true,
	}
	require.NoError(t, repo.CreateMaterial(ctx, material))

	price, err := repo.Material(ctx, vendorID, material.ID)
	require.NoError(t, err)
	require.Equal(t, "TMT bar 12mm", price.Name)
	require.True(t, price.UnitPrice.Equal(decimal.RequireFromString("68.50")))

	_, err = repo.Material(ctx, uuid.New(), material.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestLaborRateLookupAndList(t *testing.T) {
	repo := NewRepository(openCatalogDB(t))
	ctx := context.Background()
	vendorID := uuid.New()

	for _, skill := range []string{"plumber", "electrician"} {
		require.NoError(t, repo.CreateLaborRate(ctx, &models.LaborRate{
			VendorID:  vendorID,
			SkillName: skill,
			RateBasis: enums.RateBasisHourly,
			Rate:      decimal.RequireFromString("150"),
			Active:    true,
		}))
	}

	rates, err := repo.ListLaborRates(ctx, vendorID)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	require.Equal(t, "electrician", rates[0].SkillName)

	price, err := repo.Labor(ctx, vendorID, rates[1].ID)
	require.NoError(t, err)
	require.Equal(t, enums.RateBasisHourly, price.Basis)

	_, err = repo.Labor(ctx, vendorID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
