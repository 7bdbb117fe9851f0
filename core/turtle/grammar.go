package turtle

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// document is the parse tree of a Turtle file.
type document struct {
	Statements []*statement `@@*`
}

type statement struct {
	Prefix  *prefixDecl  `  @@`
	Base    *baseDecl    `| @@`
	Triples *triplesDecl `| @@ "."`
}

// prefixDecl covers both "@prefix p: <iri> ." and "PREFIX p: <iri>".
type prefixDecl struct {
	Pos     lexer.Position
	Keyword string `@( "@prefix" | "PREFIX" | "prefix" )`
	Name    string `@PName`
	IRI     string `@IRIRef`
	Dot     bool   `@"."?`
}

type baseDecl struct {
	Pos     lexer.Position
	Keyword string `@( "@base" | "BASE" | "base" )`
	IRI     string `@IRIRef`
	Dot     bool   `@"."?`
}

type triplesDecl struct {
	Pos        lexer.Position
	Subject    *term               `@@`
	Predicates []*predicateObjects `@@ ( ";" @@? )*`
}

type predicateObjects struct {
	Verb    *verb   `@@`
	Objects []*term `@@ ( "," @@ )*`
}

type verb struct {
	A   bool `  @"a"`
	IRI *iri `| @@`
}

type iri struct {
	Ref   string `  @IRIRef`
	PName string `| @PName`
}

type term struct {
	Pos     lexer.Position
	IRI     *iri     `  @@`
	Blank   string   `| @BlankNode`
	Literal *literal `| @@`
	Number  string   `| @Number`
	Bool    string   `| @( "true" | "false" )`
}

type literal struct {
	Value    string `@( LongString | String )`
	Lang     string `( @LangTag`
	Datatype *iri   `| "^^" @@ )?`
}

// turtleLexer tokenizes the Turtle subset used by NIF corpora.
// Order matters: the first matching rule wins.
var turtleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\r\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "IRIRef", Pattern: `<[^<>"{}|^` + "`" + `\\\x00-\x20]*>`},
	{Name: "LongString", Pattern: `"""(?s:(?:[^\\]|\\.)*?)"""|'''(?s:(?:[^\\]|\\.)*?)'''`},
	{Name: "String", Pattern: `"(?:[^"\\\r\n]|\\.)*"|'(?:[^'\\\r\n]|\\.)*'`},
	{Name: "Directive", Pattern: `@(?:prefix|base)\b`},
	{Name: "LangTag", Pattern: `@[a-zA-Z]+(?:-[a-zA-Z0-9]+)*`},
	{Name: "DatatypeMarker", Pattern: `\^\^`},
	{Name: "BlankNode", Pattern: `_:[A-Za-z0-9_][A-Za-z0-9_\-]*`},
	{Name: "PName", Pattern: `(?:[A-Za-z][A-Za-z0-9_\-]*)?:(?:[A-Za-z0-9_\-%:]|\\[_~.\-!$&'()*+,;=/?#@%]|\.[A-Za-z0-9_\-%:])*`},
	{Name: "Number", Pattern: `[+-]?(?:\d*\.\d+|\d+)(?:[eE][+-]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[.;,]`},
})

var turtleParser = participle.MustBuild[document](
	participle.Lexer(turtleLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)
