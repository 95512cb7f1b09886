// Package engine ties the text model to the lexing pipeline.
//
// A Session owns one document and keeps everything derived from it in step
// with its edits: per-row tokens from a background tokenizer, folds, and
// bracket and tag matching over those tokens.
//
// # Architecture
//
// The session is built on several sub-packages:
//
//   - document: lines, deltas and anchors
//   - fold: hierarchical folds tracked through anchors
//   - background: time-sliced re-tokenization on a scheduler queue
//   - iterator: bidirectional token cursor
//   - bracket: bracket and tag matching
//   - grammar: declarative grammars compiled to tokenizers
//
// # Threading
//
// Sessions are single-threaded. A host embedding one session can pump the
// session's queue from its own loop:
//
//	s, err := engine.NewSession(lang, text)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	s.Document().Insert(engine.Position{Row: 0, Column: 0}, "x")
//	s.Queue().RunDue()
//
// Host runs any number of sessions on one goroutine, loads grammars from a
// directory and swaps recompiled grammars into open sessions when the
// files change:
//
//	cfg, err := engine.LoadConfig("textmodel.toml")
//	if err != nil {
//		return err
//	}
//	h, err := engine.NewHost(cfg)
//	if err != nil {
//		return err
//	}
//	go h.Run(ctx)
//	defer h.Close()
//
//	s, err := h.Open(ctx, "main.ini", text)
//	err = h.Do(ctx, func() error {
//		_, err := s.FoldBlock(0)
//		return err
//	})
package engine
