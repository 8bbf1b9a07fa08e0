package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/embedding"
	"github.com/hyperjump/lumina/internal/extract"
	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/internal/observability"
	"github.com/hyperjump/lumina/internal/vector"
	"github.com/hyperjump/lumina/pkg/utils"
)

// embedBatchSize bounds how many chunk texts go to the embedder per call.
const embedBatchSize = 64

// Registry records ingested files so unchanged files can be skipped.
type Registry interface {
	GetSource(ctx context.Context, id string) (*models.Source, error)
	PutSource(ctx context.Context, src *models.Source) error
	ClearSources(ctx context.Context) error
}

// IngestReport summarizes one ingestion call.
type IngestReport struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Stored    int `json:"stored"`
	Rejected  int `json:"rejected"`
	Files     int `json:"files,omitempty"`
	Skipped   int `json:"skipped,omitempty"`
}

func (r *IngestReport) add(o IngestReport) {
	r.Documents += o.Documents
	r.Chunks += o.Chunks
	r.Stored += o.Stored
	r.Rejected += o.Rejected
	r.Files += o.Files
	r.Skipped += o.Skipped
}

// Indexer splits documents, embeds the chunks and adds them to the vector store.
type Indexer struct {
	store     *vector.Store
	embedder  embedding.Embedder
	splitter  *Splitter
	extractor *extract.Extractor
	web       *extract.WebLoader
	registry  Registry
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file ingested, file skipped, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithRegistry enables skipping of unchanged files on re-ingestion.
func WithRegistry(r Registry) IndexerOption {
	return func(idx *Indexer) { idx.registry = r }
}

// WithWebLoader sets the loader used by IngestURLs.
func WithWebLoader(w *extract.WebLoader) IndexerOption {
	return func(idx *Indexer) { idx.web = w }
}

// NewIndexer creates an indexer. extractor may be nil, in which case a default one is used.
func NewIndexer(store *vector.Store, embedder embedding.Embedder, splitter *Splitter, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:     store,
		embedder:  embedder,
		splitter:  splitter,
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	if idx.web == nil {
		idx.web = extract.NewWebLoader(30*time.Second, extract.WithWebLogger(idx.logger))
	}
	return idx
}

// Ingest splits docs, embeds the chunks in batches and adds them to the store.
// Returns an error only when embedding fails; rejected items are counted in the report.
func (idx *Indexer) Ingest(ctx context.Context, docs []models.Document) (IngestReport, error) {
	report := IngestReport{Documents: len(docs)}
	if len(docs) == 0 {
		return report, nil
	}
	ctx, span := observability.StartIngestSpan(ctx, docs[0].Source(), len(docs))
	defer span.End()

	pieces := idx.splitter.SplitDocuments(docs)
	report.Chunks = len(pieces)
	for start := 0; start < len(pieces); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch := pieces[start:end]
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}
		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			observability.RecordError(span, err)
			return report, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vectors) != len(batch) {
			err := fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
			observability.RecordError(span, err)
			return report, err
		}
		chunks := make([]models.Chunk, len(batch))
		for i, p := range batch {
			chunks[i] = models.Chunk{Text: p.Text, Metadata: p.Metadata, Vector: vectors[i]}
		}
		added := idx.store.Add(ctx, chunks)
		report.Stored += added.Stored()
		report.Rejected += len(added.Rejected)
	}
	observability.RecordCount(span, "ingest.chunks", report.Chunks)
	observability.RecordCount(span, "ingest.stored", report.Stored)
	idx.logger.Debug("ingested documents",
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("stored", report.Stored),
		zap.Int("rejected", report.Rejected))
	return report, nil
}

// IngestURLs loads web pages and ingests them. Pages that fail to load are skipped.
func (idx *Indexer) IngestURLs(ctx context.Context, urls []string) (IngestReport, error) {
	docs, err := idx.web.LoadURLs(ctx, urls)
	if err != nil {
		return IngestReport{}, err
	}
	return idx.Ingest(ctx, docs)
}

// IngestJSON ingests data rendered as indented JSON.
func (idx *Indexer) IngestJSON(ctx context.Context, data interface{}, source string) (IngestReport, error) {
	docs, err := extract.LoadJSON(data, source)
	if err != nil {
		return IngestReport{}, err
	}
	return idx.Ingest(ctx, docs)
}

// IngestTexts ingests raw texts with optional per-text metadata.
func (idx *Indexer) IngestTexts(ctx context.Context, texts []string, metadatas []map[string]interface{}) (IngestReport, error) {
	return idx.Ingest(ctx, extract.ProcessTexts(texts, metadatas))
}

// IngestFile loads the file at path and ingests it. If allowedExts is non-empty, the
// file's extension must be in the list (case-insensitive). With a registry configured,
// a file already ingested with the same mtime and size is skipped.
func (idx *Indexer) IngestFile(ctx context.Context, path string, allowedExts []string) (IngestReport, error) {
	idx.logger.Debug("ingesting file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return IngestReport{}, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !ExtensionAllowed(ext, allowedExts) {
		return IngestReport{}, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return IngestReport{}, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return IngestReport{}, fmt.Errorf("not a regular file: %s", absPath)
	}

	id := FileID(absPath)
	if idx.unchanged(ctx, id, absPath, info) {
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return IngestReport{Skipped: 1}, nil
	}

	docs, err := idx.extractor.Load(absPath)
	if err != nil {
		return IngestReport{}, fmt.Errorf("extract content: %w", err)
	}
	report, err := idx.Ingest(ctx, docs)
	if err != nil {
		return report, err
	}
	report.Files = 1

	if idx.registry != nil {
		src := &models.Source{
			ID:         id,
			Path:       absPath,
			ModTime:    info.ModTime().UnixNano(),
			Size:       info.Size(),
			Chunks:     report.Stored,
			IngestedAt: time.Now().UTC(),
		}
		if err := idx.registry.PutSource(ctx, src); err != nil {
			idx.logger.Warn("failed to record ingested file", zap.String("path", absPath), zap.Error(err))
		}
	}
	idx.logger.Debug("file ingested", zap.String("path", absPath), zap.Int("stored", report.Stored))
	return report, nil
}

// IngestUpload ingests a file saved at tmpPath on behalf of an upload called name. The
// documents are attributed to name and the sources registry is left untouched.
func (idx *Indexer) IngestUpload(ctx context.Context, name, tmpPath string, allowedExts []string) (IngestReport, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if len(allowedExts) > 0 && !ExtensionAllowed(ext, allowedExts) {
		return IngestReport{}, fmt.Errorf("extension %q not in allowed list", ext)
	}
	docs, err := idx.extractor.Load(tmpPath)
	if err != nil {
		return IngestReport{}, fmt.Errorf("extract content: %w", err)
	}
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]interface{})
		}
		docs[i].Metadata[models.MetaSource] = name
	}
	report, err := idx.Ingest(ctx, docs)
	if err != nil {
		return report, err
	}
	report.Files = 1
	return report, nil
}

func (idx *Indexer) unchanged(ctx context.Context, id, absPath string, info os.FileInfo) bool {
	if idx.registry == nil {
		return false
	}
	src, err := idx.registry.GetSource(ctx, id)
	if err != nil || src == nil {
		return false
	}
	return src.Path == absPath && src.ModTime == info.ModTime().UnixNano() && src.Size == info.Size()
}

// IngestDirectory walks dir recursively and ingests each regular file whose extension
// is in allowedExts (all files when empty). A file that fails to load is logged and
// skipped; walking errors abort.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string) (IngestReport, error) {
	var total IngestReport
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return total, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return total, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return total, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		report, ingestErr := idx.IngestFile(ctx, path, allowedExts)
		if ingestErr != nil {
			idx.logger.Warn("failed to ingest file", zap.String("path", path), zap.Error(ingestErr))
			return nil
		}
		total.add(report)
		return nil
	})
	return total, err
}

// IngestPath ingests a file or, when path is a directory, everything under it.
func (idx *Indexer) IngestPath(ctx context.Context, path string, allowedExts []string) (IngestReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return IngestReport{}, fmt.Errorf("stat path: %w", err)
	}
	if info.IsDir() {
		return idx.IngestDirectory(ctx, path, allowedExts)
	}
	return idx.IngestFile(ctx, path, nil)
}

// Clear empties the store and resets the sources registry so files are ingested again.
// Returns false when the local clear failed.
func (idx *Indexer) Clear(ctx context.Context) bool {
	cleared := idx.store.Clear(ctx)
	if idx.registry != nil {
		if err := idx.registry.ClearSources(ctx); err != nil {
			idx.logger.Warn("failed to reset sources registry", zap.Error(err))
			cleared = false
		}
	}
	return cleared
}

// ExtensionAllowed reports whether ext (with or without the leading dot) is in allowed.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
