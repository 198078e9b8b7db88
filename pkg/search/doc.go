// Package search resolves keywords, compact identifiers and IRIs to ranked
// ontology terms under the validation rule of a metadata field.
//
// # Overview
//
// A search goes through a fixed pipeline:
//
//   - Classify decides the lookup mode from the keyword alone
//   - SelectStrategy turns the rule into an ontology filter and parent
//     constraint, rejecting incomplete rules before any network call
//   - the exact query, and unless exact-only the broad query, run
//     concurrently through the gateway
//   - MergeHits keeps the broad hits and appends exact hits not already
//     present
//   - Exclude drops denylisted terms of child-term rules
//   - Rank orders the final list
//
// # Lookup modes
//
// A keyword that parses as an absolute URI with a host is looked up by its
// iri field. A keyword of the form PREFIX:ID is looked up by obo_id and the
// ontology filter becomes PREFIX. Both modes only run the exact query.
// Everything else is a keyword search over labels and synonyms.
//
// # Ranking
//
// Hits are sorted by:
//
//  1. position rank (exact label, synonym, prefix, infix, suffix, other)
//  2. lower-cased label
//  3. index of the hit's ontology in the rule's ontology list, with
//     unlisted ontologies last
//  4. upper-cased ontology prefix
//  5. accession
//
// All comparisons ignore case, so the same hit set always ranks the same
// way whatever order the backend returned it in.
//
// # Usage
//
//	gw := gateway.New(cfg, transport.NewClient(), cache.NewMemory(), nil)
//	service := search.NewService(gw, nil)
//
//	rule := core.ValidationRule{
//		FieldName:      "Characteristics[Organism]",
//		ValidationType: core.SelectedOntology,
//		Ontologies:     core.OntologyList{"NCBITAXON", "ENVO"},
//	}
//	result := service.Search(ctx, "Homo sapiens", rule, search.SearchOptions{})
//	if !result.Success {
//		fmt.Println(result.Message)
//	}
//
// # Errors
//
// Service methods never return Go errors. Configuration problems,
// unsupported validation types and backend failures all produce a
// SearchResult with Success false and a message. Backend failures unwrap to
// core.ErrBackend.
package search
