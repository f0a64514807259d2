package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"docchat/internal/domain"
)

// Loader lists and reads the plain-text documents of one directory.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// List returns the names of the .txt files in the directory, sorted.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrDocumentLoad, l.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the named documents from the directory. It fails if none of the
// names resolve to a readable file; individual unreadable files fail the
// whole load so a build never runs on a partial selection.
func (l *Loader) Load(names []string) ([]domain.Document, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no documents selected", domain.ErrDocumentLoad)
	}
	documents := make([]domain.Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(l.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrDocumentLoad, path, err)
		}
		documents = append(documents, domain.Document{
			ID:   uuid.New(),
			Name: name,
			Path: path,
			Text: string(data),
		})
	}
	return documents, nil
}
