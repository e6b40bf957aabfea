package vault

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// TagCount is a tag and the number of documents that carry it.
type TagCount struct {
	Tag   string
	Count int
}

// TagIndex is a prefix trie of every tag in the vault.
type TagIndex struct {
	trie  *patricia.Trie
	count int
}

// NewTagIndex returns an empty index.
func NewTagIndex() *TagIndex {
	return &TagIndex{trie: patricia.NewTrie()}
}

// Add counts one document for each distinct tag in docTags.
func (ti *TagIndex) Add(docTags []string) {
	seen := make(map[string]struct{}, len(docTags))
	for _, tag := range docTags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		key := patricia.Prefix(tag)
		if item := ti.trie.Get(key); item != nil {
			ti.trie.Set(key, item.(int)+1)
			continue
		}
		ti.trie.Insert(key, 1)
		ti.count++
	}
}

// Count returns the number of documents carrying tag.
func (ti *TagIndex) Count(tag string) int {
	if item := ti.trie.Get(patricia.Prefix(tag)); item != nil {
		return item.(int)
	}
	return 0
}

// Len returns the number of distinct tags.
func (ti *TagIndex) Len() int {
	return ti.count
}

// WithPrefix lists tags starting with prefix, most used first.
func (ti *TagIndex) WithPrefix(prefix string) []TagCount {
	var out []TagCount
	visit := func(p patricia.Prefix, item patricia.Item) error {
		out = append(out, TagCount{Tag: string(p), Count: item.(int)})
		return nil
	}

	var err error
	if prefix == "" {
		err = ti.trie.Visit(visit)
	} else {
		err = ti.trie.VisitSubtree(patricia.Prefix(prefix), visit)
	}
	if err != nil {
		log.Errorf("Error visiting tag index subtree: %v", err)
		return nil
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// Index builds a TagIndex over every note in the vault.
func (v *Vault) Index(ctx context.Context) (*TagIndex, error) {
	docs, err := v.Documents(ctx)
	if err != nil {
		return nil, err
	}
	ti := NewTagIndex()
	for _, id := range docs {
		docTags, err := v.TagsFor(ctx, id)
		if err != nil {
			log.Warnf("Skipping %s in tag index: %v", id, err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		ti.Add(docTags)
	}
	log.Debugf("Indexed %d tags from %d documents", ti.Len(), len(docs))
	return ti, nil
}
