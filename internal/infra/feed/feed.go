// Package feed supplies candidate decks: the embedded practice deck, YAML
// files, and a remote JSON endpoint.
package feed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"gopkg.in/yaml.v3"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

//go:embed candidates.yaml
var builtinYAML []byte

type deckFile struct {
	Candidates []domain.Candidate `yaml:"candidates" json:"candidates"`
}

// Parse decodes a YAML deck and validates it.
func Parse(data []byte) ([]domain.Candidate, error) {
	var f deckFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse deck: %w", err)
	}
	return validate(f.Candidates)
}

// validate rejects invalid candidates and duplicate ids (case-insensitive).
func validate(list []domain.Candidate) ([]domain.Candidate, error) {
	if len(list) == 0 {
		return nil, domain.ErrEmptyDeck
	}
	seen := make(map[string]bool, len(list))
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(c.ID)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidCandidate, c.ID)
		}
		seen[key] = true
	}
	return list, nil
}

// Builtin returns a fresh copy of the embedded practice deck.
func Builtin() []domain.Candidate {
	list, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("feed: embedded deck is invalid: %v", err))
	}
	return list
}

// ─── Sources ────────────────────────────────────────────────────────────────

// StaticSource serves a fixed list.
type StaticSource struct {
	list []domain.Candidate
}

// NewStaticSource wraps list. A nil list serves the built-in deck.
func NewStaticSource(list []domain.Candidate) *StaticSource {
	if list == nil {
		list = Builtin()
	}
	return &StaticSource{list: list}
}

// Candidates returns a copy of the list.
func (s *StaticSource) Candidates(_ context.Context) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, len(s.list))
	copy(out, s.list)
	return out, nil
}

// FileSource reads a YAML deck from disk on every call so edits are
// picked up by the next session.
type FileSource struct {
	Path string
}

// Candidates implements domain.CandidateSource.
func (s FileSource) Candidates(_ context.Context) ([]domain.Candidate, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read deck %s: %w", s.Path, err)
	}
	return Parse(data)
}

// HTTPSource fetches a JSON deck `{"candidates": [...]}` from a URL.
type HTTPSource struct {
	client *resty.Client
	path   string
}

// NewHTTPSource creates a source for baseURL + path.
func NewHTTPSource(baseURL, path string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	return &HTTPSource{client: client, path: path}
}

// Candidates implements domain.CandidateSource.
func (s *HTTPSource) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.path)
	if err != nil {
		return nil, fmt.Errorf("fetch deck: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch deck: status %d: %s", resp.StatusCode(), resp.String())
	}

	var f deckFile
	if err := json.Unmarshal(resp.Body(), &f); err != nil {
		return nil, fmt.Errorf("decode deck: %w", err)
	}
	return validate(f.Candidates)
}

// FallbackSource serves Primary and falls back when it fails.
type FallbackSource struct {
	Primary  domain.CandidateSource
	Fallback domain.CandidateSource
}

// Candidates implements domain.CandidateSource.
func (s FallbackSource) Candidates(ctx context.Context) ([]domain.Candidate, error) {
	list, err := s.Primary.Candidates(ctx)
	if err == nil {
		return list, nil
	}
	logger.Warn("[feed] primary deck unavailable, using fallback: %v", err)
	return s.Fallback.Candidates(ctx)
}
