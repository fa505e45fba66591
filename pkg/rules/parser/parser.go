package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"keystone-mrm/arbiter/pkg/rules/ast"
	rulesErrors "keystone-mrm/arbiter/pkg/rules/errors"
)

// Source is one named chunk of ruleset YAML.
type Source struct {
	Path string
	Data []byte
}

// Parser parses ruleset YAML into an ast.Ruleset. It checks the document
// shape (known keys, value kinds, nesting depth); reference and type checks
// are left to the validator.
type Parser struct {
	maxFileSize int64 // Maximum size per source in bytes (default: 10MB)
	maxDepth    int   // Maximum condition nesting depth (default: 16)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024,
		maxDepth:    16,
	}
}

// WithMaxFileSize sets the maximum size of a single source.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum condition nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// Parse parses a single ruleset file.
func (p *Parser) Parse(path string) (*ast.Ruleset, error) {
	return p.ParseFiles(path)
}

// ParseFiles reads and parses a ruleset split across several files. Files are
// merged in the given order.
func (p *Parser) ParseFiles(paths ...string) (*ast.Ruleset, error) {
	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		data, err := p.readFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, Source{Path: path, Data: data})
	}
	return p.ParseSources(sources...)
}

// ParseBytes parses ruleset YAML held in memory. sourcePath is only used in
// error locations.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Ruleset, error) {
	return p.ParseSources(Source{Path: sourcePath, Data: data})
}

// ParseSources parses and merges the given sources. The ruleset Hash covers
// the bytes of every source in order.
func (p *Parser) ParseSources(sources ...Source) (*ast.Ruleset, error) {
	if len(sources) == 0 {
		return nil, &rulesErrors.Error{
			Type:    rulesErrors.ErrorTypeIO,
			Message: "No ruleset sources given",
		}
	}

	b := newBuilder(p.maxDepth)
	hash := sha256.New()
	byPath := make(map[string][]byte, len(sources))

	for _, src := range sources {
		if int64(len(src.Data)) > p.maxFileSize {
			return nil, &rulesErrors.Error{
				Type:     rulesErrors.ErrorTypeIO,
				Message:  fmt.Sprintf("Size %d exceeds maximum %d bytes", len(src.Data), p.maxFileSize),
				Location: ast.Location{File: src.Path},
			}
		}

		root, err := decodeDocument(src.Data)
		if err != nil {
			return nil, &rulesErrors.Error{
				Type:       rulesErrors.ErrorTypeSyntax,
				Message:    fmt.Sprintf("YAML parsing failed: %v", err),
				Location:   ast.Location{File: src.Path, Line: 1, Column: 1},
				Suggestion: "Check YAML syntax (indentation, colons, quotes)",
			}
		}

		hash.Write(src.Data)
		byPath[src.Path] = src.Data
		b.addDocument(src.Path, root)
	}

	rs, err := b.result()
	if err != nil {
		addContext(b.errors, byPath)
		return nil, err
	}

	rs.Hash = "sha256:" + hex.EncodeToString(hash.Sum(nil))
	return rs, nil
}

func (p *Parser) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rulesErrors.Error{
			Type:     rulesErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	return data, nil
}

// addContext attaches source lines to errors using the in-memory sources.
func addContext(el *rulesErrors.ErrorList, sources map[string][]byte) {
	for _, e := range el.Errors {
		if src, ok := sources[e.Location.File]; ok && e.Context == "" {
			e.Context = rulesErrors.ExtractContext(e, src, 2)
		}
	}
}

// AddContext attaches source lines from the given sources to errors that do
// not yet carry any. It is used for validator errors on in-memory rulesets.
func AddContext(el *rulesErrors.ErrorList, sources ...Source) {
	byPath := make(map[string][]byte, len(sources))
	for _, src := range sources {
		byPath[src.Path] = src.Data
	}
	addContext(el, byPath)
}
