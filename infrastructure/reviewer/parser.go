package reviewer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codeowl/codeowl/domain/review"
)

// ErrNoStructuredBlock indicates the model output contained no fenced
// JSON block.
var ErrNoStructuredBlock = errors.New("no structured json block in model output")

// ParseReport extracts the first fenced JSON block from model output and
// decodes it into a Report. The markdown narrative is the output with
// the structured block removed.
func ParseReport(output string) (review.Report, error) {
	block, remainder, err := extractJSONBlock(output)
	if err != nil {
		return review.Report{}, err
	}

	var report review.Report
	if err := json.Unmarshal([]byte(block), &report); err != nil {
		return review.Report{}, fmt.Errorf("decode structured block: %w", err)
	}

	report.Markdown = strings.TrimSpace(remainder)
	return report, nil
}

// extractJSONBlock returns the contents of the first ```json fenced block
// and the output with that block cut out.
func extractJSONBlock(output string) (block, remainder string, err error) {
	start := strings.Index(output, "```json")
	fenceLen := len("```json")
	if start == -1 {
		// Some models drop the language tag.
		start = strings.Index(output, "```")
		fenceLen = len("```")
	}
	if start == -1 {
		return "", "", ErrNoStructuredBlock
	}

	rest := output[start+fenceLen:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", "", ErrNoStructuredBlock
	}

	block = strings.TrimSpace(rest[:end])
	if !strings.HasPrefix(block, "{") {
		return "", "", ErrNoStructuredBlock
	}

	remainder = output[:start] + rest[end+3:]
	return block, remainder, nil
}
