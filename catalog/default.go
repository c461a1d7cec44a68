package catalog

import (
	_ "embed"
	"fmt"
)

//go:embed menu.yaml
var defaultMenu []byte

// Default returns the built-in coffee shop menu.
func Default() *Catalog {
	c, err := Parse(defaultMenu)
	if err != nil {
		panic(fmt.Sprintf("embedded menu is invalid: %v", err))
	}
	return c
}
