package migrations

import "github.com/go-rel/rel"

func MigrateCreateAgents(schema *rel.Schema) {
	schema.CreateTable("agents", func(t *rel.Table) {
		t.String("id")
		t.String("did")
		t.String("name")
		t.String("creator")
		t.String("owner")
		t.Int("trust_score")
		t.String("logo")
		t.Text("description")
		t.Text("capabilities")
		t.Text("limitations")
		t.String("category")
		t.DateTime("created_at")
		t.DateTime("updated_at")
		t.PrimaryKey("id")
		t.Unique([]string{"did"})
	})
}

func RollbackCreateAgents(schema *rel.Schema) {
	schema.DropTable("agents")
}
