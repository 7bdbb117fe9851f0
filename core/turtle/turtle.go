// Package turtle reads RDF Turtle files into a de-duplicated set of triples.
//
// It covers the subset NIF entity-linking corpora are written in: prefix and
// base directives, IRIs, prefixed names, blank-node labels, the "a" keyword,
// predicate lists, object lists, and string, numeric and boolean literals with
// optional language tags or datatypes. Blank-node property lists and
// collections are rejected.
package turtle

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/FocuswithJustin/DeepEL/core/encoding"
	"github.com/FocuswithJustin/DeepEL/core/errors"
)

// Well-known IRIs.
const (
	RDFType    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
)

// formatName is used in parse errors.
const formatName = "turtle"

// Kind identifies the type of an RDF term.
type Kind int

// Term kinds.
const (
	KindIRI Kind = iota
	KindBlank
	KindLiteral
)

// Term is an RDF node.
type Term struct {
	Kind Kind

	// Value is the IRI, the blank-node label or the literal's lexical form.
	Value string

	// Lang is the language tag of a literal, without "@".
	Lang string

	// Datatype is the datatype IRI of a typed literal.
	Datatype string
}

// String returns the term's value, the way RDF libraries stringify nodes.
func (t Term) String() string {
	return t.Value
}

// key identifies a term for de-duplication.
func (t Term) key() string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%s", t.Kind, t.Value, t.Lang, t.Datatype)
}

// Triple is one subject-predicate-object statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term

	// Line is the line of the statement the triple came from.
	Line int
}

// Parse reads a Turtle document. Triples are returned in document order with
// duplicates removed; name is used in error messages.
func Parse(name string, r io.Reader) ([]Triple, error) {
	doc, err := turtleParser.Parse(name, r)
	if err != nil {
		return nil, parseError(name, err)
	}
	return resolve(name, doc)
}

// ParseString is Parse over a string.
func ParseString(name, input string) ([]Triple, error) {
	return Parse(name, strings.NewReader(input))
}

func parseError(name string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return errors.NewParse(formatName, name, perr.Position().Line, perr.Message())
	}
	return errors.NewParse(formatName, name, 0, err.Error())
}

// resolver expands prefixed names and relative IRIs while walking statements.
type resolver struct {
	name     string
	base     *url.URL
	prefixes map[string]string
	seen     map[string]bool
	triples  []Triple
}

func resolve(name string, doc *document) ([]Triple, error) {
	r := &resolver{
		name:     name,
		prefixes: make(map[string]string),
		seen:     make(map[string]bool),
	}
	for _, st := range doc.Statements {
		var err error
		switch {
		case st.Prefix != nil:
			err = r.prefix(st.Prefix)
		case st.Base != nil:
			err = r.setBase(st.Base)
		case st.Triples != nil:
			err = r.statement(st.Triples)
		}
		if err != nil {
			return nil, err
		}
	}
	return r.triples, nil
}

func (r *resolver) prefix(p *prefixDecl) error {
	if p.Keyword == "@prefix" && !p.Dot {
		return errors.NewParse(formatName, r.name, p.Pos.Line, "@prefix directive must end with '.'")
	}
	iri, err := r.iriRef(p.IRI, p.Pos.Line)
	if err != nil {
		return err
	}
	r.prefixes[strings.TrimSuffix(p.Name, ":")] = iri
	return nil
}

func (r *resolver) setBase(b *baseDecl) error {
	if b.Keyword == "@base" && !b.Dot {
		return errors.NewParse(formatName, r.name, b.Pos.Line, "@base directive must end with '.'")
	}
	iri, err := r.iriRef(b.IRI, b.Pos.Line)
	if err != nil {
		return err
	}
	u, err := url.Parse(iri)
	if err != nil {
		return errors.NewParsef(formatName, r.name, b.Pos.Line, "invalid base IRI %q", iri)
	}
	r.base = u
	return nil
}

func (r *resolver) statement(t *triplesDecl) error {
	subject, err := r.term(t.Subject)
	if err != nil {
		return err
	}
	if subject.Kind == KindLiteral {
		return errors.NewParse(formatName, r.name, t.Pos.Line, "literal cannot be a subject")
	}

	for _, po := range t.Predicates {
		var predicate Term
		if po.Verb.A {
			predicate = Term{Kind: KindIRI, Value: RDFType}
		} else {
			value, err := r.iri(po.Verb.IRI, t.Pos.Line)
			if err != nil {
				return err
			}
			predicate = Term{Kind: KindIRI, Value: value}
		}

		for _, o := range po.Objects {
			object, err := r.term(o)
			if err != nil {
				return err
			}
			r.add(Triple{Subject: subject, Predicate: predicate, Object: object, Line: t.Pos.Line})
		}
	}
	return nil
}

func (r *resolver) add(tr Triple) {
	k := tr.Subject.key() + "\x01" + tr.Predicate.key() + "\x01" + tr.Object.key()
	if r.seen[k] {
		return
	}
	r.seen[k] = true
	r.triples = append(r.triples, tr)
}

func (r *resolver) term(t *term) (Term, error) {
	line := t.Pos.Line
	switch {
	case t.IRI != nil:
		value, err := r.iri(t.IRI, line)
		return Term{Kind: KindIRI, Value: value}, err
	case t.Blank != "":
		return Term{Kind: KindBlank, Value: strings.TrimPrefix(t.Blank, "_:")}, nil
	case t.Literal != nil:
		return r.literal(t.Literal, line)
	case t.Number != "":
		dt := XSDInteger
		switch {
		case strings.ContainsAny(t.Number, "eE"):
			dt = XSDDouble
		case strings.Contains(t.Number, "."):
			dt = XSDDecimal
		}
		return Term{Kind: KindLiteral, Value: t.Number, Datatype: dt}, nil
	case t.Bool != "":
		return Term{Kind: KindLiteral, Value: t.Bool, Datatype: XSDBoolean}, nil
	}
	return Term{}, errors.NewParse(formatName, r.name, line, "empty term")
}

func (r *resolver) literal(l *literal, line int) (Term, error) {
	raw := l.Value
	quote := 1
	if strings.HasPrefix(raw, `"""`) || strings.HasPrefix(raw, `'''`) {
		quote = 3
	}
	out := Term{
		Kind:  KindLiteral,
		Value: encoding.UnescapeBackslash(raw[quote : len(raw)-quote]),
		Lang:  strings.TrimPrefix(l.Lang, "@"),
	}
	if l.Datatype != nil {
		dt, err := r.iri(l.Datatype, line)
		if err != nil {
			return Term{}, err
		}
		out.Datatype = dt
	}
	return out, nil
}

func (r *resolver) iri(i *iri, line int) (string, error) {
	if i.Ref != "" {
		return r.iriRef(i.Ref, line)
	}
	return r.pname(i.PName, line)
}

// iriRef strips the angle brackets and resolves a relative IRI against the base.
func (r *resolver) iriRef(ref string, line int) (string, error) {
	value := encoding.UnescapeBackslash(ref[1 : len(ref)-1])
	if r.base == nil {
		return value, nil
	}
	u, err := url.Parse(value)
	if err != nil {
		return "", errors.NewParsef(formatName, r.name, line, "invalid IRI %q", value)
	}
	if u.IsAbs() {
		return value, nil
	}
	return r.base.ResolveReference(u).String(), nil
}

func (r *resolver) pname(pn string, line int) (string, error) {
	idx := strings.Index(pn, ":")
	prefix, local := pn[:idx], pn[idx+1:]
	ns, ok := r.prefixes[prefix]
	if !ok {
		return "", errors.NewParsef(formatName, r.name, line, "undeclared prefix %q", prefix)
	}
	return ns + unescapeLocal(local), nil
}

// unescapeLocal removes the backslash from reserved-character escapes in a
// local name.
func unescapeLocal(local string) string {
	if !strings.Contains(local, `\`) {
		return local
	}
	var b strings.Builder
	for i := 0; i < len(local); i++ {
		if local[i] == '\\' && i+1 < len(local) {
			i++
		}
		b.WriteByte(local[i])
	}
	return b.String()
}
