package vocab

import (
	"os"
	"slices"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ShortlistFile is the on-disk shortlist. Candidates maps a source word to
// the target words it may translate to. The TopN most frequent target words,
// which in a frequency-sorted vocabulary are ids 0..TopN-1, are always
// allowed.
type ShortlistFile struct {
	TopN       int                 `yaml:"top_n"`
	Candidates map[string][]string `yaml:"candidates"`
}

// Shortlist restricts the output vocabulary of one sentence to words that
// plausibly translate its source words.
type Shortlist struct {
	topN       int
	targetSize int
	candidates map[string][]int
}

// LoadShortlist reads a shortlist and resolves its target words against
// target. Target words missing from the vocabulary are an error.
func LoadShortlist(path string, target *Vocab) (*Shortlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shortlist")
	}
	var f ShortlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse shortlist %s", path)
	}
	s, err := NewShortlist(f, target)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

func NewShortlist(f ShortlistFile, target *Vocab) (*Shortlist, error) {
	if f.TopN < 0 {
		return nil, errors.Errorf("negative top_n %d", f.TopN)
	}
	s := &Shortlist{
		topN:       min(f.TopN, target.Size()),
		targetSize: target.Size(),
		candidates: make(map[string][]int, len(f.Candidates)),
	}
	for src, trg := range f.Candidates {
		ids := make([]int, 0, len(trg))
		for _, w := range trg {
			id, ok := target.ids[w]
			if !ok {
				return nil, errors.Wrapf(ErrInvalidVocab, "shortlist entry %q: unknown target word %q", src, w)
			}
			ids = append(ids, id)
		}
		s.candidates[src] = ids
	}
	return s, nil
}

// Filter returns the sorted, duplicate-free target ids allowed for a sentence
// with the given source words. EOS and UNK are always included.
func (s *Shortlist) Filter(sourceWords []string) []int {
	seen := make(map[int]struct{}, s.topN+2)
	add := func(id int) {
		if id >= 0 && id < s.targetSize {
			seen[id] = struct{}{}
		}
	}
	add(EOSID)
	add(UNKID)
	for id := 0; id < s.topN; id++ {
		add(id)
	}
	for _, w := range sourceWords {
		for _, id := range s.candidates[w] {
			add(id)
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
