package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
	"github.com/PolyRides/firefunction-postsAnalyze/pkg/utils"
)

// Document is one labeled training example
type Document struct {
	Text  string            `json:"text"`
	Label models.PostStatus `json:"label"`
}

// Corpus is a versioned set of labeled training documents supplied
// externally. The built-in reference corpus has exactly three examples
// and is a placeholder, not production training data.
type Corpus struct {
	Version   string     `json:"version"`
	Documents []Document `json:"documents"`
}

// DefaultCorpus returns the built-in reference corpus
func DefaultCorpus() Corpus {
	return Corpus{
		Version: "reference-v1",
		Documents: []Document{
			{
				Text:  "Offering  SLO -> SB Tomorrow (Friday) at 5 Returning Saturday afternoon",
				Label: models.PostStatusRideOffer,
			},
			{
				Text:  "OFFERING: Friday 5/4/2018 7pm CAL POLY >>>>> SGV / 626 / LA Sunday 5/6/2018 12pm SGV / 626 >>> CAL POLY $20 HMU",
				Label: models.PostStatusRideOffer,
			},
			{
				Text:  "seeking: May 11th (anytime after 12): SLO to Berkeley  May 13th (anytime): Berkeley to SLO  This is for my older sister's graduation so please let me know if anyone his heading up to Berkeley(-:",
				Label: models.PostStatusRideSeeking,
			},
		},
	}
}

// LoadCorpus reads a corpus from a JSON file. An empty path returns
// the built-in reference corpus.
func LoadCorpus(path string) (Corpus, error) {
	if path == "" {
		return DefaultCorpus(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Corpus{}, fmt.Errorf("read corpus: %w", err)
	}

	var corpus Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return Corpus{}, fmt.Errorf("parse corpus: %w", err)
	}
	if err := corpus.Validate(); err != nil {
		return Corpus{}, err
	}

	return corpus, nil
}

// Validate checks the corpus has documents with known labels
func (c Corpus) Validate() error {
	if len(c.Documents) == 0 {
		return fmt.Errorf("corpus has no documents")
	}
	for i, doc := range c.Documents {
		if strings.TrimSpace(doc.Text) == "" {
			return fmt.Errorf("corpus document %d has empty text", i)
		}
		switch doc.Label {
		case models.PostStatusRideOffer, models.PostStatusRideSeeking:
		default:
			return fmt.Errorf("corpus document %d has unknown label %q", i, doc.Label)
		}
	}
	return nil
}

// Checksum identifies the corpus contents for diagnostics and the
// version endpoint
func (c Corpus) Checksum() string {
	var sb strings.Builder
	sb.WriteString(c.Version)
	for _, doc := range c.Documents {
		sb.WriteString("\x00")
		sb.WriteString(string(doc.Label))
		sb.WriteString("\x00")
		sb.WriteString(doc.Text)
	}
	return utils.HashString(sb.String())
}
