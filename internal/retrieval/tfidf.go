// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "i": true,
	"in": true, "is": true, "it": true, "located": true, "me": true, "my": true,
	"of": true, "on": true, "or": true, "the": true, "to": true, "want": true,
	"with": true, "destination": true, "overview": true, "like": true,
}

// tokenize lower-cases text, splits on anything that is not a letter or
// digit and drops stopwords. A trailing plural "s" is trimmed so "beaches"
// and "beach" share a term.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] || len(f) < 2 {
			continue
		}
		out = append(out, stem(f))
	}
	return out
}

func stem(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "es") && len(w) > 4 && strings.ContainsAny(w[len(w)-3:len(w)-2], "hsx"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}

// TFIDF is a local, deterministic embedder. Prepare fits the vocabulary and
// inverse document frequencies on the corpus.
type TFIDF struct {
	Vocab map[string]int `json:"vocab"`
	IDF   []float64      `json:"idf"`
}

// NewTFIDF returns an unfitted embedder.
func NewTFIDF() *TFIDF {
	return &TFIDF{}
}

func (t *TFIDF) Name() string { return "tfidf" }

// Prepare builds the vocabulary from corpus.
func (t *TFIDF) Prepare(_ context.Context, corpus []string) error {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, tok := range tokenize(doc) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	t.Vocab = make(map[string]int, len(terms))
	t.IDF = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		t.Vocab[term] = i
		t.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

// Embed returns the L2-normalised tf-idf vector of text. Terms outside the
// vocabulary are ignored; text with no known term yields a zero vector.
func (t *TFIDF) Embed(_ context.Context, text string) ([]float64, error) {
	if t.Vocab == nil {
		return nil, fmt.Errorf("tfidf embedder has not been prepared")
	}
	vec := make([]float64, len(t.IDF))
	toks := tokenize(text)
	if len(toks) == 0 {
		return vec, nil
	}
	for _, tok := range toks {
		if i, ok := t.Vocab[tok]; ok {
			vec[i]++
		}
	}
	floats.Scale(1/float64(len(toks)), vec)
	floats.Mul(vec, t.IDF)
	if norm := floats.Norm(vec, 2); norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return vec, nil
}

// Snapshot serialises the fitted vocabulary.
func (t *TFIDF) Snapshot() ([]byte, error) {
	return json.Marshal(t)
}

// Restore loads a vocabulary written by Snapshot.
func (t *TFIDF) Restore(data []byte) error {
	var fitted TFIDF
	if err := json.Unmarshal(data, &fitted); err != nil {
		return fmt.Errorf("decoding tfidf snapshot: %w", err)
	}
	if len(fitted.Vocab) != len(fitted.IDF) {
		return fmt.Errorf("corrupt tfidf snapshot: %d terms, %d weights", len(fitted.Vocab), len(fitted.IDF))
	}
	*t = fitted
	return nil
}
