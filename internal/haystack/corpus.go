package haystack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadCorpus reads every .txt file under dir in lexical order and returns
// the document texts. The fixed order keeps assembled contexts
// deterministic for identical inputs.
func LoadCorpus(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read haystack dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("haystack dir %s contains no .txt files", dir)
	}

	docs := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read corpus file %s: %w", name, err)
		}
		docs = append(docs, string(data))
	}
	return docs, nil
}
