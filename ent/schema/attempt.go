package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Attempt is one candidate attempt journaled on this machine. Result
// columns stay NULL until the finish call succeeds.
type Attempt struct {
	ent.Schema
}

func (Attempt) Mixin() []ent.Mixin {
	return []ent.Mixin{SequenceMixin{}}
}

func (Attempt) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable().
			Comment("Backend attempt identifier"),
		field.String("token").
			NotEmpty().
			Comment("Invite token the attempt was started from"),
		field.String("assessment_id").
			NotEmpty(),
		field.String("language").
			Default(""),
		field.String("api_url").
			Default("").
			Comment("Backend the attempt lives on, used by outbox replay"),
		field.String("first_name"),
		field.String("last_name"),
		field.String("email"),
		field.String("phone"),
		field.Int("question_count").
			Default(0),
		field.Int64("started_at").
			Comment("Unix milliseconds"),
		field.Int64("finished_at").
			Optional().
			Nillable().
			Comment("Unix milliseconds"),
		field.Float("score").
			Optional().
			Nillable(),
		field.Int("correct_count").
			Optional().
			Nillable(),
		field.Int("total_questions").
			Optional().
			Nillable(),
		field.Float("duration_s").
			Optional().
			Nillable(),
		field.Bool("passed").
			Optional().
			Nillable(),
		field.String("result_language").
			Optional().
			Nillable(),
	}
}
