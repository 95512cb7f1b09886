package grammar

// Definition is a grammar as written in a YAML or TOML file.
type Definition struct {
	// Name identifies the grammar in a Registry.
	Name string `yaml:"name" toml:"name"`

	// Extensions are the file extensions the grammar applies to.
	Extensions []string `yaml:"extensions" toml:"extensions"`

	// States maps state names to ordered rules. "start" is required.
	States map[string][]RuleSpec `yaml:"states" toml:"states"`

	// Brackets maps token types to bracket classes.
	Brackets map[string]string `yaml:"brackets" toml:"brackets"`

	// Tags names the token types of markup tags.
	Tags *TagSpec `yaml:"tags" toml:"tags"`

	// Keywords feeds rules that set keywords: true.
	Keywords *KeywordSpec `yaml:"keywords" toml:"keywords"`

	// Script is Lua source defining tokenFunc and nextFunc functions.
	Script string `yaml:"script" toml:"script"`

	// MaxTokenCount overrides the tokenizer's per-line token ceiling.
	MaxTokenCount int `yaml:"maxTokenCount" toml:"maxTokenCount"`
}

// RuleSpec is one rule of a state.
type RuleSpec struct {
	Regex string `yaml:"regex" toml:"regex"`

	// Token classifies the whole match.
	Token string `yaml:"token" toml:"token"`
	// Tokens classifies each capture group.
	Tokens []string `yaml:"tokens" toml:"tokens"`
	// TokenFunc names a script function classifying the match.
	TokenFunc string `yaml:"tokenFunc" toml:"tokenFunc"`
	// Keywords classifies the match through the grammar's keyword table.
	Keywords bool `yaml:"keywords" toml:"keywords"`

	// Next is a state to go to, or "pop".
	Next string `yaml:"next" toml:"next"`
	// Push enters a nested state.
	Push string `yaml:"push" toml:"push"`
	// NextFunc names a script function computing the next state.
	NextFunc string `yaml:"nextFunc" toml:"nextFunc"`

	// Include splices another state's rules in place of this one.
	Include string `yaml:"include" toml:"include"`

	CaseInsensitive bool   `yaml:"caseInsensitive" toml:"caseInsensitive"`
	DefaultToken    string `yaml:"defaultToken" toml:"defaultToken"`
	// Merge set to false keeps matches from merging with the previous token.
	Merge          *bool `yaml:"merge" toml:"merge"`
	ConsumeLineEnd bool  `yaml:"consumeLineEnd" toml:"consumeLineEnd"`
}

// TagSpec names the token types of markup tags.
type TagSpec struct {
	Open    string `yaml:"open" toml:"open"`
	EndOpen string `yaml:"endOpen" toml:"endOpen"`
	Close   string `yaml:"close" toml:"close"`
	Name    string `yaml:"name" toml:"name"`
}

// KeywordSpec is a keyword table.
type KeywordSpec struct {
	// Types maps token types to their words.
	Types map[string][]string `yaml:"types" toml:"types"`
	// Default classifies words in no list.
	Default string `yaml:"default" toml:"default"`
	// IgnoreCase compares words with case folding.
	IgnoreCase bool `yaml:"ignoreCase" toml:"ignoreCase"`
}
