// Package background keeps a document's tokens up to date incrementally.
//
// A BackgroundTokenizer caches the tokens and end state of every row. Edits
// invalidate only the rows they touch, splicing the caches so they stay
// aligned with the document's rows. Stale rows are re-lexed by runs
// scheduled on a scheduler.Queue; a run yields after a row quota once its
// time budget is spent and resumes on a later turn. When a row's end state
// changes, the next row is invalidated so the change propagates.
package background
