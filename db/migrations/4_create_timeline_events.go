package migrations

import "github.com/go-rel/rel"

func MigrateCreateTimelineEvents(schema *rel.Schema) {
	schema.CreateTable("timeline_events", func(t *rel.Table) {
		t.String("id")
		t.String("agent_id")
		t.String("kind")
		t.Text("description")
		t.DateTime("created_at")
		t.PrimaryKey("id")
		t.ForeignKey("agent_id", "agents", "id")
	})
}

func RollbackCreateTimelineEvents(schema *rel.Schema) {
	schema.DropTable("timeline_events")
}
