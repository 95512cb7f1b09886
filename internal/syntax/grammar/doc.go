// Package grammar loads declarative lexing tables from YAML or TOML files
// and compiles them into tokenizers.
//
// A grammar file names its states and their ordered rules:
//
//	name: ini
//	extensions: [ini]
//	brackets:
//	  paren.lparen: paren
//	  paren.rparen: paren
//	states:
//	  start:
//	    - regex: ';.*$'
//	      token: comment
//	    - regex: '\['
//	      token: paren.lparen
//	      push: section
//	  section:
//	    - regex: '\]'
//	      token: paren.rparen
//	      next: pop
//	    - defaultToken: section.name
//
// Rules classify matches with token, tokens (one per capture group),
// keywords (the grammar's keyword table) or tokenFunc, a function of the
// grammar's Lua script. Transitions use next (a state, or "pop"), push or
// nextFunc. An include rule splices in another state's rules.
//
// Registry caches compiled languages by name and file extension. Watcher
// recompiles a grammar when its file changes.
package grammar
