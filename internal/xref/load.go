package xref

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/vchain/internal/chain"
)

// maxConcurrentReads bounds the number of documents read at once.
const maxConcurrentReads = 8

// loadResult is the outcome of reading one document.
type loadResult struct {
	docType chain.DocType
	text    string
	reason  string // non-empty when the document is unavailable
}

// LoadDocuments reads every document configured in p concurrently. A
// document that is missing, unreadable, not valid UTF-8, or whose path
// escapes the workspace is reported as unavailable instead of failing the
// load. Only context cancellation returns an error.
func LoadDocuments(ctx context.Context, p *chain.Project) (map[chain.DocType]string, []Unavailable, error) {
	types := p.Schema.DocTypes()
	results := make([]loadResult, len(types))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, dt := range types {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = loadOne(p, dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("loading documents: %w", err)
	}

	docs := make(map[chain.DocType]string, len(types))
	var unavailable []Unavailable
	for _, r := range results {
		if r.reason != "" {
			unavailable = append(unavailable, Unavailable{DocType: r.docType, Reason: r.reason})
			continue
		}
		docs[r.docType] = r.text
	}
	sort.SliceStable(unavailable, func(i, j int) bool {
		return p.Schema.Rank(unavailable[i].DocType) < p.Schema.Rank(unavailable[j].DocType)
	})
	return docs, unavailable, nil
}

func loadOne(p *chain.Project, dt chain.DocType) loadResult {
	res := loadResult{docType: dt}
	path, err := p.DocumentPath(dt)
	if err != nil {
		res.reason = err.Error()
		return res
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.reason = "not found: " + p.Documents[dt]
		return res
	case err != nil:
		res.reason = "unreadable: " + err.Error()
		return res
	case !utf8.Valid(data):
		res.reason = "not valid UTF-8: " + p.Documents[dt]
		return res
	}
	res.text = string(data)
	return res
}

// Run loads the project's documents and analyzes them. Unavailable
// documents are listed on the report.
func Run(ctx context.Context, p *chain.Project) (*Report, error) {
	docs, unavailable, err := LoadDocuments(ctx, p)
	if err != nil {
		return nil, err
	}
	r := NewAnalyzer(p.Schema).Analyze(docs)
	r.Unavailable = unavailable
	return r, nil
}
