// Package chunker splits loaded documents into overlapping text windows.
//
// Splitting is recursive: text longer than the chunk size is cut on
// paragraph breaks first, then line breaks, then sentence ends, then
// words, and finally raw characters. Lengths are measured in runes.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// Defaults used by the indexer.
const (
	DefaultSize    = 800
	DefaultOverlap = 120
)

// MetadataSource is the metadata key that carries a chunk's origin.
const MetadataSource = "source"

// ErrInvalidConfig indicates a bad size/overlap pair.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// separators in order of preference.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Document is a loaded source file.
type Document struct {
	Content string
	Source  string
}

// Chunk is one retrieval unit cut from a Document.
type Chunk struct {
	Content string
	Source  string
	// Index is the position of the chunk within its source.
	Index int
}

// Chunker splits documents with a fixed size and overlap.
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

// New returns a chunker producing chunks of at most size runes with
// overlap runes shared between neighbours.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive", ErrInvalidConfig)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size)", ErrInvalidConfig)
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}, nil
}

// Size returns the maximum chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks docs in order. Blank documents produce no chunks; empty input
// produces an empty, non-nil result.
func (c *Chunker) Split(docs []Document) ([]Chunk, error) {
	in := make([]schema.Document, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		in = append(in, schema.Document{
			PageContent: d.Content,
			Metadata:    map[string]any{MetadataSource: d.Source},
		})
	}

	chunks := []Chunk{}
	if len(in) == 0 {
		return chunks, nil
	}

	out, err := textsplitter.SplitDocuments(c.splitter, in)
	if err != nil {
		return nil, fmt.Errorf("splitting documents: %w", err)
	}

	perSource := make(map[string]int)
	for _, d := range out {
		if strings.TrimSpace(d.PageContent) == "" {
			continue
		}
		src, _ := d.Metadata[MetadataSource].(string)
		chunks = append(chunks, Chunk{
			Content: d.PageContent,
			Source:  src,
			Index:   perSource[src],
		})
		perSource[src]++
	}
	return chunks, nil
}
