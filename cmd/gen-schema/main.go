// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Command gen-schema generates the record JSON Schema file describing
// the record subset the permission layer reads.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nyudlts/ultraviolet-access/internal/record"
)

func main() {
	schema, err := record.GenerateSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join("schemas", "record.schema.json")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
