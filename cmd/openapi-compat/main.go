// Package main provides a CLI to check OpenAPI compatibility with the frontend.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rai-team-aiframe/dreamly/docs"
	"github.com/rai-team-aiframe/dreamly/internal/apicompat"
)

func main() {
	basePath := flag.String("base", "", "base OpenAPI swagger.yaml or swagger.json path")
	revisionPath := flag.String("revision", "", "revision OpenAPI document path (defaults to the docs built into this binary)")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	baseSpec, err := loadSpec(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base spec: %v\n", err)
		os.Exit(1)
	}

	var revisionSpec apicompat.Spec
	if strings.TrimSpace(*revisionPath) == "" {
		revisionSpec, err = apicompat.Parse([]byte(docs.SwaggerInfo.ReadDoc()))
	} else {
		revisionSpec, err = loadSpec(*revisionPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision spec: %v\n", err)
		os.Exit(1)
	}

	issues := apicompat.Compare(baseSpec, revisionSpec)
	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Println("openapi compatibility check passed")
}

func loadSpec(path string) (apicompat.Spec, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return apicompat.Spec{}, err
	}
	return apicompat.Parse(raw)
}
