package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	mongostore "github.com/mealboard/marketplace/pkg/store/mongodb"
)

// StartMongo runs a disposable MongoDB container and returns a connected
// adapter. The container is terminated when the test ends.
func StartMongo(t *testing.T, database string) *mongostore.Adapter {
	t.Helper()
	RequireIntegration(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	if err != nil {
		t.Fatalf("failed to resolve mongo endpoint: %v", err)
	}

	adapter, err := mongostore.NewAdapter(mongostore.Config{URI: endpoint, Database: database}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}
