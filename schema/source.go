package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cohortkit/validator/cache"
	"github.com/cohortkit/validator/specs"
)

// ErrNotFound is returned when a source has no class definitions to offer.
var ErrNotFound = errors.New("class definitions not found")

// DefaultTimeout bounds HTTP definition fetches.
const DefaultTimeout = 30 * time.Second

// Source supplies a class-definition document.
type Source interface {
	// FetchDefinitions returns the parsed document. Implementations return
	// ErrNotFound when they have nothing to offer so a chain can move on.
	FetchDefinitions(ctx context.Context) (Document, error)
}

// --- HTTP Source ---

// HTTPSource fetches the document from a backend with a one-shot GET.
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.httpClient.Timeout = timeout
	}
}

// NewHTTPSource creates a source that GETs the document from url.
func NewHTTPSource(url string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		url: url,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchDefinitions implements Source.
func (s *HTTPSource) FetchDefinitions(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch class definitions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w at %s", ErrNotFound, s.url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching class definitions from %s: status %d", s.url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read class definitions: %w", err)
	}
	return ParseDocument(data)
}

// URL returns the source URL.
func (s *HTTPSource) URL() string {
	return s.url
}

// --- File Source ---

// FileSource reads the document from a local file.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by a JSON file on disk.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchDefinitions implements Source.
func (s *FileSource) FetchDefinitions(_ context.Context) (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read class definitions: %w", err)
	}
	return ParseDocument(data)
}

// Path returns the file path.
func (s *FileSource) Path() string {
	return s.path
}

// --- Embedded Source ---

// EmbeddedSource serves the built-in class-definition document shipped with
// the library. It never fails outside of a corrupted build.
type EmbeddedSource struct{}

// NewEmbeddedSource creates a source for the embedded defaults.
func NewEmbeddedSource() EmbeddedSource {
	return EmbeddedSource{}
}

// FetchDefinitions implements Source.
func (EmbeddedSource) FetchDefinitions(_ context.Context) (Document, error) {
	data, err := specs.DefaultClassDefinitions()
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

// --- Chain ---

// Chain implements Source by trying multiple sources in order.
// This follows the chain-of-responsibility pattern: the first source that
// returns a document wins, sources answering ErrNotFound are skipped, and
// any other error stops the chain.
type Chain struct {
	sources []Source
}

// NewChain creates a source chain.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// FetchDefinitions tries each source until one succeeds.
func (c *Chain) FetchDefinitions(ctx context.Context) (Document, error) {
	for _, src := range c.sources {
		doc, err := src.FetchDefinitions(ctx)
		if err == nil && doc != nil {
			return doc, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Add appends a source to the chain.
func (c *Chain) Add(src Source) {
	c.sources = append(c.sources, src)
}

// --- Caching Wrapper ---

// CachingSource wraps a Source with an LRU cache keyed by an identity
// string. Retries after a transient failure and registries sharing one
// source hit the cache instead of refetching.
type CachingSource struct {
	source Source
	key    string
	docs   *cache.Cache[string, Document]
}

// NewCachingSource creates a caching wrapper. The key identifies the
// wrapped source in the shared cache (typically its URL or path).
func NewCachingSource(source Source, key string, docs *cache.Cache[string, Document]) *CachingSource {
	return &CachingSource{
		source: source,
		key:    key,
		docs:   docs,
	}
}

// FetchDefinitions checks the cache first, then calls the wrapped source.
func (c *CachingSource) FetchDefinitions(ctx context.Context) (Document, error) {
	if doc, ok := c.docs.Get(c.key); ok {
		return doc, nil
	}

	doc, err := c.source.FetchDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	c.docs.Set(c.key, doc)
	return doc, nil
}
