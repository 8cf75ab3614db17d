// Package similarity scores how close two natural-language queries are.
//
// Queries are normalized (case, whitespace, trailing sentence punctuation),
// then compared with three independent metrics: token-set Jaccard,
// bag-of-words cosine and character-level Levenshtein. The metrics are
// folded into a weighted composite score that is checked against a
// threshold. FindBestMatch applies the composite scorer to a candidate set
// supplied by the knowledge store and picks the earliest highest-scoring
// record.
//
// Everything in this package is pure and safe for concurrent use.
package similarity
