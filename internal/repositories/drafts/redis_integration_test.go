//go:build integration

package drafts_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/rpg-builder/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-builder/internal/repositories/drafts"
	"github.com/KirkDiggler/rpg-builder/internal/testutils"
)

// TestRedisRepositoryAgainstServer runs the shared suite against a real Redis
func TestRedisRepositoryAgainstServer(t *testing.T) {
	client := testutils.StartRedisContainer(t)

	suite.Run(t, &RepositoryTestSuite{
		newRepo: func(t *testing.T, clk clock.Clock) drafts.Repository {
			testutils.FlushTestRedis(t.Context(), t, client)
			repo, err := drafts.NewRedisRepository(&drafts.RedisConfig{Client: client, Clock: clk})
			require.NoError(t, err)
			return repo
		},
	})
}
