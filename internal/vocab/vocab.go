// Package vocab maps between words and the integer ids the model uses, and
// builds per-sentence output shortlists.
package vocab

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	EOS = "</s>"
	UNK = "UNK"

	EOSID = 0
	UNKID = 1
)

// ErrInvalidVocab reports a vocabulary file that does not describe a dense
// id space starting with the reserved entries.
var ErrInvalidVocab = errors.New("invalid vocabulary")

// Vocab is an immutable word/id mapping. Ids are dense: 0..Size()-1.
type Vocab struct {
	ids   map[string]int
	words []string
}

// Load reads a "word: id" mapping. dl4mt JSON dictionaries are valid input
// since YAML is a superset of JSON.
func Load(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read vocabulary")
	}
	var m map[string]int
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse vocabulary %s", path)
	}
	v, err := FromMap(m)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return v, nil
}

// FromMap validates m and builds a Vocab from it.
func FromMap(m map[string]int) (*Vocab, error) {
	words := make([]string, len(m))
	filled := make([]bool, len(m))
	for w, id := range m {
		if id < 0 || id >= len(m) {
			return nil, errors.Wrapf(ErrInvalidVocab, "id %d of %q outside 0..%d", id, w, len(m)-1)
		}
		if filled[id] {
			return nil, errors.Wrapf(ErrInvalidVocab, "id %d used by %q and %q", id, words[id], w)
		}
		words[id], filled[id] = w, true
	}
	if len(words) < 2 || words[EOSID] != EOS || words[UNKID] != UNK {
		return nil, errors.Wrapf(ErrInvalidVocab, "ids %d and %d must be %s and %s", EOSID, UNKID, EOS, UNK)
	}
	ids := make(map[string]int, len(m))
	for w, id := range m {
		ids[w] = id
	}
	return &Vocab{ids: ids, words: words}, nil
}

// New builds a Vocab from words in id order, after the reserved entries.
func New(words []string) (*Vocab, error) {
	m := map[string]int{EOS: EOSID, UNK: UNKID}
	for _, w := range words {
		if _, ok := m[w]; ok {
			return nil, errors.Wrapf(ErrInvalidVocab, "duplicate word %q", w)
		}
		m[w] = len(m)
	}
	return FromMap(m)
}

// Save writes the vocabulary in the format Load reads.
func (v *Vocab) Save(path string) error {
	var doc yaml.Node
	doc.Kind = yaml.MappingNode
	for id, w := range v.words {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: w, Style: yaml.DoubleQuotedStyle},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(id)},
		)
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, "encode vocabulary")
	}
	return os.WriteFile(path, data, 0o644)
}

func (v *Vocab) Size() int {
	return len(v.words)
}

// ID returns the id of word, or UNKID.
func (v *Vocab) ID(word string) int {
	if id, ok := v.ids[word]; ok {
		return id
	}
	return UNKID
}

// Word returns the word for id, or UNK for an id outside the vocabulary.
func (v *Vocab) Word(id int) string {
	if id < 0 || id >= len(v.words) {
		return UNK
	}
	return v.words[id]
}

// Encode maps words to ids and terminates the sequence with EOSID.
func (v *Vocab) Encode(words []string) []int {
	out := make([]int, 0, len(words)+1)
	for _, w := range words {
		out = append(out, v.ID(w))
	}
	return append(out, EOSID)
}

// Decode maps ids back to words, stopping at the first EOSID.
func (v *Vocab) Decode(ids []int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == EOSID {
			break
		}
		out = append(out, v.Word(id))
	}
	return out
}

// Tokenize splits a pre-tokenized line on whitespace.
func Tokenize(line string) []string {
	return strings.Fields(line)
}

// Detokenize joins words with single spaces.
func Detokenize(words []string) string {
	return strings.Join(words, " ")
}
