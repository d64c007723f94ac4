package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/NullMeDev/factlens/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	creds := cfg.Credentials()
	keys := make([]string, 0, len(creds))
	for key := range creds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	missing := []string{}
	for _, key := range keys {
		if creds[key] {
			fmt.Printf("%s is set\n", key)
		} else {
			missing = append(missing, key)
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration is invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d regional fact-checkers configured from %s\n", len(cfg.Regional), cfg.SourcesFile)

	// Missing keys only disable the matching source.
	if len(missing) > 0 {
		fmt.Printf("Not set (those sources will report SRC_005): %v\n", missing)
	} else {
		fmt.Println("All optional credentials are set.")
	}
}
