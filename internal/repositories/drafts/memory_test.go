package drafts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mockclock "github.com/KirkDiggler/rpg-builder/internal/pkg/clock/mock"
	"github.com/KirkDiggler/rpg-builder/internal/repositories/drafts"
)

func TestMemoryRepositoryStampsFromClock(t *testing.T) {
	ctrl := gomock.NewController(t)
	clk := mockclock.NewMockClock(ctrl)
	repo := drafts.NewMemoryRepository(clk)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	renamed := created.Add(time.Hour)

	gomock.InOrder(
		clk.EXPECT().Now().Return(created),
		clk.EXPECT().Now().Return(renamed),
	)

	_, err := repo.Create(ctx, drafts.CreateInput{Draft: newDraft("draft_1", "owner_1")})
	require.NoError(t, err)

	out, err := repo.UpdateName(ctx, drafts.UpdateNameInput{ID: "draft_1", Name: "Aldric"})
	require.NoError(t, err)

	assert.Equal(t, created, out.Draft.CreatedAt)
	assert.Equal(t, renamed, out.Draft.UpdatedAt)
	assert.Equal(t, "Aldric", out.Draft.Name)
}
