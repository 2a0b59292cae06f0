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

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/db/ent/schema/utils"
)

type ReviewTask struct {
	ent.Schema
}

func (ReviewTask) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "review_tasks"},
	}
}

func (ReviewTask) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("document_id", uuid.UUID{}).Immutable(),
		field.JSON("record", json.RawMessage{}).
			Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.String("reason").NotEmpty().
			Validate(utils.EnumValidator(constants.ReviewReasons()...)),
		field.Float("confidence").Default(0),
		field.Float("threshold").Default(0),
		field.Time("created_at").Default(time.Now).Immutable(),
		field.Time("resolved_at").Optional().Nillable(),
	}
}

func (ReviewTask) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("document", Document.Type).
			Ref("review_tasks").
			Field("document_id").
			Unique().
			Required().
			Immutable(),
	}
}

func (ReviewTask) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("document_id", "created_at"),
		index.Fields("resolved_at"),
	}
}
