package topics

import "sort"

// Dictionary maps terms to integer ids after document-frequency pruning.
// Training and assignment share one Dictionary instance, so topic ids stay
// meaningful between the two passes by construction.
type Dictionary struct {
	ids     map[string]int
	terms   []string
	docFreq []int
}

// BuildDictionary scans tokenized documents and keeps terms appearing in at
// least minDocFreq documents and in less than maxDocRatio of all documents.
// Ids are assigned in lexicographic term order for reproducibility.
func BuildDictionary(docs [][]string, minDocFreq int, maxDocRatio float64) *Dictionary {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	maxDF := int(maxDocRatio * float64(len(docs)))
	var kept []string
	for term, freq := range df {
		if freq < minDocFreq {
			continue
		}
		if freq >= maxDF && maxDF > 0 {
			continue
		}
		kept = append(kept, term)
	}
	sort.Strings(kept)

	d := &Dictionary{
		ids:     make(map[string]int, len(kept)),
		terms:   kept,
		docFreq: make([]int, len(kept)),
	}
	for i, term := range kept {
		d.ids[term] = i
		d.docFreq[i] = df[term]
	}
	return d
}

// Size returns the vocabulary size.
func (d *Dictionary) Size() int {
	return len(d.terms)
}

// Term returns the term for an id.
func (d *Dictionary) Term(id int) string {
	return d.terms[id]
}

// ID returns the id for a term.
func (d *Dictionary) ID(term string) (int, bool) {
	id, ok := d.ids[term]
	return id, ok
}

// DocFreq returns the document frequency recorded for an id.
func (d *Dictionary) DocFreq(id int) int {
	return d.docFreq[id]
}

// BOW converts a tokenized document to a flat id sequence, dropping
// out-of-vocabulary tokens. Repetitions are preserved.
func (d *Dictionary) BOW(tokens []string) []int {
	var ids []int
	for _, tok := range tokens {
		if id, ok := d.ids[tok]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
