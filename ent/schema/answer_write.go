package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AnswerWrite is one queued answer choice and its delivery status.
type AnswerWrite struct {
	ent.Schema
}

func (AnswerWrite) Mixin() []ent.Mixin {
	return []ent.Mixin{SequenceMixin{}}
}

func (AnswerWrite) Fields() []ent.Field {
	return []ent.Field{
		field.String("attempt_id").
			NotEmpty(),
		field.String("question_id").
			NotEmpty(),
		field.String("option_id").
			NotEmpty(),
		field.Int64("seq").
			Comment("Per-attempt write order"),
		field.Enum("status").
			Values("pending", "delivered", "failed", "superseded"),
		field.String("error").
			Default(""),
		field.Int64("created_at").
			Comment("Unix milliseconds"),
		field.Int64("updated_at").
			Comment("Unix milliseconds"),
	}
}

func (AnswerWrite) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("attempt_id", "seq").Unique(),
		index.Fields("status", "attempt_id", "seq"),
	}
}
