package migrations

import "github.com/go-rel/rel"

func MigrateCreateCredentialRequests(schema *rel.Schema) {
	schema.CreateTable("credential_requests", func(t *rel.Table) {
		t.String("id")
		t.String("agent_id")
		t.String("type")
		t.String("status")
		t.Text("notes")
		t.String("evidence")
		t.String("requester_id")
		t.Text("reason")
		t.String("credential_id")
		t.DateTime("created_at")
		t.DateTime("updated_at")
		t.PrimaryKey("id")
		t.ForeignKey("agent_id", "agents", "id")
	})
}

func RollbackCreateCredentialRequests(schema *rel.Schema) {
	schema.DropTable("credential_requests")
}
