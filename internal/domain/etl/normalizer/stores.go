// Package normalizer canonicalizes store identifiers against a master list,
// so the same store never splits into several series because of spelling
// variants in the uploaded exports.
package normalizer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// masterRow is one line of the store master CSV.
type masterRow struct {
	StoreID      string `csv:"store_id"`
	StandardName string `csv:"standard_name"`
	Variant1     string `csv:"variant_1"`
	Variant2     string `csv:"variant_2"`
	Variant3     string `csv:"variant_3"`
	Variant4     string `csv:"variant_4"`
}

// StoreNormalizer maps raw store labels to canonical store IDs.
type StoreNormalizer struct {
	exact     map[string]string // variant or standard name -> store id
	canonical []string          // all known labels, for fuzzy fallback
	labelToID map[string]string
}

// NewStoreNormalizer builds an empty normalizer. Unknown labels pass through
// unchanged, so the pipeline works without a master list.
func NewStoreNormalizer() *StoreNormalizer {
	return &StoreNormalizer{
		exact:     make(map[string]string),
		labelToID: make(map[string]string),
	}
}

// LoadMaster reads the master CSV (store_id, standard_name, variant_1..4).
func LoadMaster(reader io.Reader) (*StoreNormalizer, error) {
	var rows []*masterRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse store master: %w", err)
	}

	n := NewStoreNormalizer()
	for _, row := range rows {
		if row.StoreID == "" {
			continue
		}
		labels := []string{row.StandardName, row.Variant1, row.Variant2, row.Variant3, row.Variant4}
		for _, label := range labels {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			n.exact[label] = row.StoreID
			n.canonical = append(n.canonical, label)
			n.labelToID[label] = row.StoreID
		}
		// The ID itself is always a valid label.
		n.exact[row.StoreID] = row.StoreID
	}
	return n, nil
}

// LoadMasterFile reads the master CSV from disk. A missing path yields a
// pass-through normalizer rather than an error.
func LoadMasterFile(path string) (*StoreNormalizer, error) {
	if path == "" {
		return NewStoreNormalizer(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStoreNormalizer(), nil
		}
		return nil, fmt.Errorf("failed to open store master: %w", err)
	}
	defer f.Close()
	return LoadMaster(f)
}

// CanonicalStoreID resolves a raw label to its store ID. Resolution order:
// exact match, then fuzzy match against every known label. Labels with no
// plausible match pass through unchanged.
func (n *StoreNormalizer) CanonicalStoreID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	if id, ok := n.exact[raw]; ok {
		return id
	}

	if len(n.canonical) == 0 {
		return raw
	}

	matches := fuzzy.RankFindNormalizedFold(raw, n.canonical)
	if len(matches) == 0 {
		return raw
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.Distance < best.Distance {
			best = m
		}
	}
	return n.labelToID[best.Target]
}
