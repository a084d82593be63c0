package migrations

import "github.com/go-rel/rel"

// requests are looked up by agent and status when checking for open requests of a type
func MigrateIndexRequestLookups(schema *rel.Schema) {
	schema.CreateIndex("credential_requests", "credential_requests_agent_status", []string{"agent_id", "status"})
	schema.CreateIndex("credentials", "credentials_agent", []string{"agent_id"})
	schema.CreateIndex("timeline_events", "timeline_events_agent", []string{"agent_id"})
}

func RollbackIndexRequestLookups(schema *rel.Schema) {
	schema.DropIndex("timeline_events", "timeline_events_agent")
	schema.DropIndex("credentials", "credentials_agent")
	schema.DropIndex("credential_requests", "credential_requests_agent_status")
}
