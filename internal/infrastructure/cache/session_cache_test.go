package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// SessionStateStoreSuite runs the Redis store against a real Redis
type SessionStateStoreSuite struct {
	suite.Suite
	container testcontainers.Container
	client    *redis.Client
	store     *SessionStateStore
}

func (s *SessionStateStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections").
					WithStartupTimeout(30*time.Second),
				wait.ForListeningPort("6379/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(s.T(), err, "Failed to start Redis container")
	s.container = container

	host, err := container.Host(ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(s.T(), err)

	s.client, err = NewRedisClient(ctx, &config.RedisConfig{
		Host:     host,
		Port:     port.Int(),
		PoolSize: 5,
	}, zap.NewNop())
	require.NoError(s.T(), err)

	s.store = NewSessionStateStore(s.client, time.Minute, zap.NewNop())
}

func (s *SessionStateStoreSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(context.Background()); err != nil {
			s.T().Logf("Failed to terminate Redis container: %v", err)
		}
	}
}

func (s *SessionStateStoreSuite) TestLoad_UnknownSession() {
	st, err := s.store.Load(context.Background(), "unknown")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), form.NewState(), st)
}

func (s *SessionStateStoreSuite) TestSaveAndLoad() {
	ctx := context.Background()

	st := form.State{
		Draft:      recipe.Draft{Ingredients: "tomato, rice", Diet: recipe.DietVegetarian},
		Phase:      form.PhaseSuccess,
		Generation: 3,
		Recipe: &recipe.Recipe{
			Name:     "Tomato Rice",
			Calories: recipe.NewFigure("350 kcal"),
			Steps:    []string{"Boil rice", "Add tomato", "Serve"},
		},
	}
	require.NoError(s.T(), s.store.Save(ctx, "session-1", st))

	loaded, err := s.store.Load(ctx, "session-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), st, loaded)

	ttl, err := s.client.TTL(ctx, sessionKey("session-1")).Result()
	require.NoError(s.T(), err)
	assert.Greater(s.T(), ttl, time.Duration(0))
}

func (s *SessionStateStoreSuite) TestLoad_CorruptEntry() {
	ctx := context.Background()
	require.NoError(s.T(), s.client.Set(ctx, sessionKey("corrupt"), "{not json", time.Minute).Err())

	st, err := s.store.Load(ctx, "corrupt")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), form.PhaseIdle, st.Phase)
}

func TestSessionStateStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration tests in short mode")
	}
	suite.Run(t, new(SessionStateStoreSuite))
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "recipe-form:session:abc", sessionKey("abc"))
}
