// Command validate runs a single candidate document through the safety
// checks and reports the outcome. It exits 0 for an accepted document and
// 1 for a rejected one, which makes it usable from CI and shell pipelines.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/pipeline"
	"github.com/scribe-safety-gate/internal/policy"
)

func main() {
	kind := flag.String("kind", "", "document kind: IMAGING_FINDINGS, LAB_RESULTS or SOAP_NOTE")
	lang := flag.String("lang", "en", "document language: en, es, fr or pt")
	file := flag.String("file", "", "path to the candidate document JSON (defaults to stdin)")
	policyPath := flag.String("policy", "", "path to a policy YAML file (defaults to the embedded tables)")
	flag.Parse()

	if *kind == "" {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := readDocument(*file)
	if err != nil {
		log.Fatalf("Failed to read document: %v", err)
	}

	policies, err := policy.Load(*policyPath)
	if err != nil {
		log.Fatalf("Failed to load policy tables: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := pipeline.New(policies, logger)
	_, verr := p.Validate(domain.CandidateDocument{
		RawText:  string(raw),
		Kind:     domain.DocumentKind(*kind),
		Language: domain.Language(*lang),
	})
	if verr != nil {
		fmt.Fprintf(os.Stderr, "rejected: %s\n", verr.Error())
		os.Exit(1)
	}

	fmt.Printf("accepted (policy %s)\n", policies.Version())
}

func readDocument(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
