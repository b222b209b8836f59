package registry

import (
	"context"
	"log"
	"testing"

	"github.com/siherrmann/tmsrag/database"
	"github.com/siherrmann/tmsrag/helper"
	loadSql "github.com/siherrmann/tmsrag/sql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initPostgresRegistry(t *testing.T) *PostgresRegistry {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	db := helper.NewTestDatabase(dbConfig)
	require.NoError(t, loadSql.Init(db.Instance))

	documents, err := database.NewDocumentsDBHandler(db, true)
	require.NoError(t, err)

	registry, err := NewPostgresRegistry(documents)
	require.NoError(t, err)
	return registry
}
