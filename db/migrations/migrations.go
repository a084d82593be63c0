package migrations

import (
	"context"

	"github.com/go-rel/migration"
	"github.com/go-rel/rel"
)

type step struct {
	version  int
	migrate  func(schema *rel.Schema)
	rollback func(schema *rel.Schema)
}

var steps = []step{
	{1, MigrateCreateAgents, RollbackCreateAgents},
	{2, MigrateCreateCredentialRequests, RollbackCreateCredentialRequests},
	{3, MigrateCreateCredentials, RollbackCreateCredentials},
	{4, MigrateCreateTimelineEvents, RollbackCreateTimelineEvents},
	{5, MigrateIndexRequestLookups, RollbackIndexRequestLookups},
}

// Versions of all registered migrations, in order of execution.
func Versions() (versions []int) {
	for _, s := range steps {
		versions = append(versions, s.version)
	}
	return versions
}

// Migrate brings the schema of the given repository to the latest version.
func Migrate(ctx context.Context, repository rel.Repository) {
	m := migration.New(repository)
	for _, s := range steps {
		m.Register(s.version, s.migrate, s.rollback)
	}
	m.Migrate(ctx)
}
