package classifier

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
)

// Classifier is a bag-of-words naive Bayes model over post text. A
// trained classifier is immutable, so classification is a pure
// function of (model, text) and always deterministic.
type Classifier struct {
	labels     []models.PostStatus
	docCounts  map[models.PostStatus]int
	wordCounts map[models.PostStatus]map[string]int
	totalWords map[models.PostStatus]int
	vocab      map[string]struct{}
	totalDocs  int
	version    string
}

// Train builds a classifier from a labeled corpus
func Train(corpus Corpus) (*Classifier, error) {
	if err := corpus.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{
		docCounts:  make(map[models.PostStatus]int),
		wordCounts: make(map[models.PostStatus]map[string]int),
		totalWords: make(map[models.PostStatus]int),
		vocab:      make(map[string]struct{}),
		version:    corpus.Checksum(),
	}

	for _, doc := range corpus.Documents {
		if _, ok := c.wordCounts[doc.Label]; !ok {
			c.wordCounts[doc.Label] = make(map[string]int)
			c.labels = append(c.labels, doc.Label)
		}
		c.docCounts[doc.Label]++
		c.totalDocs++

		for _, token := range Tokenize(doc.Text) {
			c.wordCounts[doc.Label][token]++
			c.totalWords[doc.Label]++
			c.vocab[token] = struct{}{}
		}
	}

	// Stable label order makes tie-breaks deterministic
	sort.Slice(c.labels, func(i, j int) bool { return c.labels[i] < c.labels[j] })

	return c, nil
}

// Classify labels the text with the most probable class. Laplace
// smoothing keeps unseen tokens from zeroing a class out.
func (c *Classifier) Classify(text string) models.PostStatus {
	tokens := Tokenize(text)
	vocabSize := float64(len(c.vocab))

	best := c.labels[0]
	bestScore := math.Inf(-1)

	for _, label := range c.labels {
		score := math.Log(float64(c.docCounts[label]) / float64(c.totalDocs))
		denom := float64(c.totalWords[label]) + vocabSize

		for _, token := range tokens {
			count := float64(c.wordCounts[label][token])
			score += math.Log((count + 1) / denom)
		}

		if score > bestScore {
			bestScore = score
			best = label
		}
	}

	return best
}

// Version identifies the trained model's corpus
func (c *Classifier) Version() string {
	return c.version
}

// Tokenize splits text into lowercased word tokens. It exists for
// diagnostics; classification applies the same split internally and
// nothing else.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}
