package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"altenheim-avatar/internal/repository"
)

func memoryRepos() (Repos, *repository.MemoryResidentsRepository) {
	residents := repository.NewMemoryResidentsRepository()
	return Repos{
		Tenants:     repository.NewMemoryTenantsRepository(),
		Users:       repository.NewMemoryUsersRepository(),
		Residents:   residents,
		Biographies: repository.NewMemoryBiographiesRepository(residents),
	}, residents
}

func TestDemo_CreatesFacilityOnce(t *testing.T) {
	ctx := context.Background()
	repos, residents := memoryRepos()

	tenantID, err := Demo(ctx, repos, bcrypt.MinCost, zap.NewNop())
	require.NoError(t, err)

	list, err := residents.ListActiveByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Gertrud", list[0].FirstName)
	assert.Equal(t, "Trudel", list[0].DisplayName)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(list[0].PINHash), []byte("1234")))

	bios, err := repos.Biographies.ListByResident(ctx, list[0].ResidentID)
	require.NoError(t, err)
	assert.Len(t, bios, 7)

	again, err := Demo(ctx, repos, bcrypt.MinCost, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, tenantID, again)
	list, err = residents.ListActiveByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	admin, err := repos.Users.GetActiveByEmail(ctx, "admin@sonnenschein-heim.de")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
}
