package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"
)

type VersionSnapshot struct {
	ent.Schema
}

func (VersionSnapshot) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "version_snapshots"},
	}
}

func (VersionSnapshot) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("document_id", uuid.UUID{}).Immutable(),
		field.Int("version_number").Positive().Immutable(),
		field.JSON("record", json.RawMessage{}).
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Time("preserved_at").Default(time.Now).Immutable(),
		field.String("reason").NotEmpty().Immutable(),
	}
}

func (VersionSnapshot) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("snapshots").
			Field("document_id").
			Unique().
			Required().
			Immutable(),
	}
}

func (VersionSnapshot) Indexes() []ent.Index {
	return []ent.Index{
		// version numbers stay contiguous per document
		index.Fields("document_id", "version_number").Unique(),
	}
}
