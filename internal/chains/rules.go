package chains

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidyops/taskchain/internal/errors"
)

// fileFetcher is the slice of the graph client the rule source needs.
type fileFetcher interface {
	GetFileContent(ctx context.Context, driveID, filePath string) ([]byte, error)
}

// RuleSource reads the chain-rule document from the remote drive. The
// document is fetched fresh on every load; editing the file is how rules
// change, so nothing is cached.
type RuleSource struct {
	files    fileFetcher
	driveID  string
	filePath string
}

// NewRuleSource builds a rule source for the document at filePath in the
// given drive.
func NewRuleSource(files fileFetcher, driveID, filePath string) *RuleSource {
	return &RuleSource{
		files:    files,
		driveID:  driveID,
		filePath: filePath,
	}
}

// Load fetches and parses the rule document, preserving document order.
func (s *RuleSource) Load(ctx context.Context) ([]ChainRule, error) {
	const op = "chains.RuleSource.Load"

	content, err := s.files.GetFileContent(ctx, s.driveID, s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rule document: %w", err)
	}

	var rules []ChainRule
	if err := json.Unmarshal(content, &rules); err != nil {
		return nil, errors.E(op, errors.KindMalformed,
			fmt.Errorf("failed to parse rule document: %w", err))
	}

	return rules, nil
}
