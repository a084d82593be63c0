package migrations

import "github.com/go-rel/rel"

func MigrateCreateCredentials(schema *rel.Schema) {
	schema.CreateTable("credentials", func(t *rel.Table) {
		t.String("id")
		t.String("agent_id")
		t.String("credential_request_id")
		t.String("type")
		t.Bool("verified")
		t.String("status")
		t.Text("vc_data")
		t.DateTime("created_at")
		t.PrimaryKey("id")
		t.ForeignKey("agent_id", "agents", "id")
	})
}

func RollbackCreateCredentials(schema *rel.Schema) {
	schema.DropTable("credentials")
}
