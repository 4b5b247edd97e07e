// Package variant decodes JSON into one member of a closed set of Go shapes.
//
// A union is declared once, at package init, over a sealed interface type:
//
//	type Delta interface{ isDelta() }
//
//	var deltaUnion = variant.Register(variant.Extensible("Delta", "type",
//	    func(u variant.Unknown) Delta { return UnknownDelta{u} },
//	    variant.Struct[TextDelta, Delta]("text_delta"),
//	    variant.Struct[InputJSONDelta, Delta]("input_json_delta"),
//	))
//
// # Strategies
//
// Discriminated unions ([Discriminated], [Extensible]) read a string tag field
// and make exactly one decode attempt against the mapped shape. A legible but
// unmapped tag fails with core.ErrUnrecognizedDiscriminator for closed unions
// and yields an [Unknown] payload for extensible ones.
//
// Trial unions ([Trial]) have no tag. Candidates are tried in declaration
// order and the first that decodes wins; if none does, the error is
// core.ErrAllCandidatesFailed with every candidate's failure attached.
//
// # Validation
//
// Decoding only checks structure. Call Validate on the result to enforce
// required fields and known enumerations; an Unknown never validates.
//
// # Struct fields
//
// [Field] carries a union value inside an enclosing struct. Its JSON methods
// find the union through the registry populated by [Register].
package variant
