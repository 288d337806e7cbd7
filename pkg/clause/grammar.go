package clause

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar AST for the participle parser. The builder in parser.go converts
// these nodes 1:1 into plot types.

type astClause struct {
	Keyword  string           `parser:"@('VISUALISE'|'VISUALIZE')"`
	Wildcard bool             `parser:"( @'*'"`
	Items    []*astGlobalItem `parser:"| @@ (',' @@)* )?"`
	From     *string          `parser:"('FROM' @Ident)?"`
	Draws    []*astDraw       `parser:"@@*"`
	Scales   []*astScale      `parser:"@@*"`
	Facet    *astFacet        `parser:"@@?"`
	Labels   []*astSetting    `parser:"('LABEL' @@ (',' @@)*)?"`
	Theme    *string          `parser:"('THEME' @Ident)?"`
	Guides   []*astGuide      `parser:"@@*"`
	Semi     bool             `parser:"';'?"`
}

// astGlobalItem is `value AS aesthetic` or a bare identifier (implicit
// form: column and aesthetic share the name).
type astGlobalItem struct {
	Pos       lexer.Position
	Value     astValue `parser:"@@"`
	Aesthetic *string  `parser:"('AS' @(Ident|'LABEL'|'TYPE'))?"`
}

type astDraw struct {
	Pos      lexer.Position
	Geom     string          `parser:"'DRAW' @Ident"`
	Name     *string         `parser:"('NAMED' @Ident)?"`
	Mappings []*astLayerItem `parser:"('MAPPING' @@ (',' @@)*)?"`
	Settings []*astSetting   `parser:"('SETTING' @@ (',' @@)*)?"`
}

// astLayerItem is the layer-level mapping item; only the explicit form is
// accepted here.
type astLayerItem struct {
	Pos       lexer.Position
	Value     astValue `parser:"@@"`
	Aesthetic string   `parser:"'AS' @(Ident|'LABEL'|'TYPE')"`
}

type astSetting struct {
	Pos   lexer.Position
	Name  string   `parser:"@(Ident|'LABEL'|'TYPE')"`
	Value astValue `parser:"'=>' @@"`
}

type astScale struct {
	Pos       lexer.Position
	Aesthetic string        `parser:"'SCALE' @(Ident|'LABEL')"`
	Type      *string       `parser:"('TYPE' @Ident)?"`
	Props     []*astSetting `parser:"(@@ (',' @@)*)?"`
}

type astFacet struct {
	Fields []string `parser:"'FACET' 'BY' @Ident (',' @Ident)?"`
}

type astGuide struct {
	Pos       lexer.Position
	Aesthetic string        `parser:"'GUIDE' @(Ident|'LABEL')"`
	Props     []*astSetting `parser:"(@@ (',' @@)*)?"`
}

// astValue is a mapping or setting value: quoted strings, numbers and
// booleans are literals, a bare identifier is a column reference.
type astValue struct {
	Number *float64 `parser:"  @Number"`
	Str    *string  `parser:"| @String"`
	Bool   *string  `parser:"| @('TRUE'|'FALSE')"`
	Column *string  `parser:"| @Ident"`
}

var (
	clauseLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\b(VISUALISE|VISUALIZE|DRAW|MAPPING|SETTING|NAMED|FROM|SCALE|TYPE|FACET|LABEL|THEME|GUIDE|BY|AS|TRUE|FALSE)\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Number", Pattern: `[-+]?\d*\.?\d+`},
		{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
		{Name: "Arrow", Pattern: `=>`},
		{Name: "Punct", Pattern: `[*,();]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	clauseParser = participle.MustBuild[astClause](
		participle.Lexer(clauseLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)
