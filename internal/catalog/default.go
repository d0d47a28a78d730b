package catalog

import (
	_ "embed"
	"sync"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in CoffeBuck catalog. It panics if the embedded
// document is invalid, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalogYAML)
		if err != nil {
			panic("catalog: embedded catalog.yaml is invalid: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// DefaultYAML returns the embedded catalog document, e.g. to seed a file
// that operators can then edit.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultCatalogYAML...)
}
