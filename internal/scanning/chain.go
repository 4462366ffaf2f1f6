package scanning

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Chain tries scanners in order and returns the first usable text
type Chain struct {
	scanners  []Scanner
	minLength int
}

// NewChain creates a Chain that skips results shorter than minLength unless
// no scanner does better
func NewChain(minLength int, scanners ...Scanner) *Chain {
	if minLength <= 0 {
		minLength = DefaultMinTextLength
	}
	return &Chain{scanners: scanners, minLength: minLength}
}

// ScanDocument runs each scanner until one yields enough text
func (c *Chain) ScanDocument(data []byte, contentType string) (*ScanResult, error) {
	var (
		best     *ScanResult
		warnings []string
		errs     []error
	)
	for _, s := range c.scanners {
		res, err := s.ScanDocument(data, contentType)
		if err != nil {
			if !errors.Is(err, ErrNoText) {
				slog.Warn("Scanner failed", "scanner", fmt.Sprintf("%T", s), "error", err)
				errs = append(errs, err)
			}
			warnings = append(warnings, err.Error())
			continue
		}
		warnings = append(warnings, res.Warnings...)
		if len(strings.TrimSpace(res.Text)) >= c.minLength {
			res.Warnings = warnings
			return res, nil
		}
		if best == nil || len(res.Text) > len(best.Text) {
			best = res
		}
		warnings = append(warnings, fmt.Sprintf("%s: only %d characters", res.Method, len(strings.TrimSpace(res.Text))))
	}

	if best != nil && strings.TrimSpace(best.Text) != "" {
		best.Warnings = warnings
		return best, nil
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoText, errors.Join(errs...))
	}
	return nil, ErrNoText
}

// Close closes every scanner in the chain
func (c *Chain) Close() error {
	var errs []error
	for _, s := range c.scanners {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func joinPages(pages []string) string {
	return strings.TrimSpace(strings.Join(pages, "\f"))
}
