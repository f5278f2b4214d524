// Command farmverse is the storefront client: browse the catalog, manage the
// cart, check out, and manage farmer listings against a FarmVerse backend.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
