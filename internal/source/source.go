// Package source discovers and reads XML source documents from a local
// directory or a Cloud Storage prefix.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

const gcsScheme = "gs://"

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("source document not found")

// Store reads source documents. The Cloud Storage client is created on first
// use so local runs never need credentials.
type Store struct {
	mu     sync.Mutex
	client *storage.Client
}

// NewStore returns a store with no open clients.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithClient uses an existing Cloud Storage client.
func NewStoreWithClient(client *storage.Client) *Store {
	return &Store{client: client}
}

// Close releases the Cloud Storage client, if one was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *Store) gcs(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s.client = client
	return client, nil
}

// Discover lists every .xml document under location, sorted.
func (s *Store) Discover(ctx context.Context, location string) ([]string, error) {
	if strings.HasPrefix(location, gcsScheme) {
		return s.discoverGCS(ctx, location)
	}
	return CollectFiles(location)
}

// CollectFiles walks a directory and returns all XML files.
func CollectFiles(dirPath string) ([]string, error) {
	var files []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isXML(path) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dirPath, walkFn); err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

func (s *Store) discoverGCS(ctx context.Context, location string) ([]string, error) {
	bucket, prefix, err := ParseGCSURI(location)
	if err != nil {
		return nil, err
	}
	client, err := s.gcs(ctx)
	if err != nil {
		return nil, err
	}

	var docs []string
	it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", bucket, prefix, err)
		}
		if isXML(attrs.Name) {
			docs = append(docs, gcsScheme+bucket+"/"+attrs.Name)
		}
	}
	slices.Sort(docs)
	return docs, nil
}

// Read returns the raw bytes of a document. Errors that may clear on retry
// are marked transient.
func (s *Store) Read(ctx context.Context, document string) ([]byte, error) {
	if !strings.HasPrefix(document, gcsScheme) {
		data, err := os.ReadFile(document)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, document)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", document, err)
		}
		return data, nil
	}

	bucket, object, err := ParseGCSURI(document)
	if err != nil {
		return nil, err
	}
	client, err := s.gcs(ctx)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSError(document, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classifyGCSError(document, err)
	}
	return data, nil
}

func classifyGCSError(document string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, document)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500) {
		return pipeline.Transient(fmt.Errorf("read %s: %w", document, err))
	}
	if pipeline.IsTransient(err) {
		return pipeline.Transient(fmt.Errorf("read %s: %w", document, err))
	}
	return fmt.Errorf("read %s: %w", document, err)
}

// ParseGCSURI splits gs://bucket/path into bucket and path.
func ParseGCSURI(uri string) (bucket, path string, err error) {
	rest, ok := strings.CutPrefix(uri, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, path, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %q", uri)
	}
	return bucket, path, nil
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
