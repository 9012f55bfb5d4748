package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// SequenceMixin gives a journal row its place in the global write order.
type SequenceMixin struct {
	mixin.Schema
}

func (SequenceMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("sequence").
			Immutable().
			Comment("Monotonically increasing journal sequence number"),
	}
}

func (SequenceMixin) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("sequence"),
	}
}
