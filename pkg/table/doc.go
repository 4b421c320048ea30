// Package table holds the in-memory tabular model shared by every stage.
//
// A Table is an ordered list of column names plus rows keyed by column name.
// Cells are canonical text: the empty string is the missing sentinel, and
// Enforce coerces declared columns to their semantic Kind so that every
// artifact a stage writes has the same shape regardless of which carrier the
// data came from.
package table
