// Package ingest unpacks portfolio uploads, dedupes their images, and drives
// descriptor analysis over the batch.
package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/database/models"
	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/atelier-ai/atelier/internal/database/types/enum"
	"github.com/atelier-ai/atelier/internal/profile"
	"github.com/atelier-ai/atelier/internal/storage"
	"github.com/atelier-ai/atelier/pkg/utils"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var (
	// ErrNoValidImages is returned when an archive holds nothing analyzable.
	ErrNoValidImages = errors.New("archive contains no valid images")
	// ErrAnalysisFailed is returned when every image in a batch failed analysis.
	ErrAnalysisFailed = errors.New("no image could be analyzed")
	// errSuperseded cancels an ingestion run replaced by a newer upload.
	errSuperseded = errors.New("portfolio superseded by a newer upload")
)

// maxImageBytes caps a single archive entry; larger files are skipped.
const maxImageBytes = 20 << 20

// maxPreviewURLs bounds the preview list carried on progress events.
const maxPreviewURLs = 6

// imageContentTypes maps accepted extensions to their MIME types. Everything
// else in an archive is ignored.
var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ProgressEvent is one ingestion progress update, suitable for SSE.
// Processed never decreases within a run.
type ProgressEvent struct {
	Processed    int      `json:"processed"`
	Total        int      `json:"total"`
	CurrentImage string   `json:"current_image,omitempty"`
	PreviewURLs  []string `json:"preview_urls"`
	Errors       []string `json:"errors,omitempty"`
}

// entry is one accepted image extracted from the upload archive.
type entry struct {
	name        string
	data        []byte
	hash        string
	contentType string
	ext         string
}

// Pipeline runs portfolio ingestion end to end: unpack, dedupe, upload,
// analyze, and transition the portfolio.
type Pipeline struct {
	db          database.Client
	store       *storage.Client
	analyzer    *ai.DescriptorAnalyzer
	profiles    *profile.Aggregator
	concurrency int
	logger      *zap.Logger
}

// NewPipeline creates an ingestion Pipeline.
func NewPipeline(
	db database.Client, store *storage.Client, analyzer *ai.DescriptorAnalyzer,
	profiles *profile.Aggregator, concurrency int, logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		db:          db,
		store:       store,
		analyzer:    analyzer,
		profiles:    profiles,
		concurrency: concurrency,
		logger:      logger.Named("ingest"),
	}
}

// Ingest creates a fresh portfolio from a ZIP upload and analyzes every
// image in it. The new portfolio supersedes the user's previous one; a run
// that is itself superseded mid-flight stops without persisting its tail.
func (p *Pipeline) Ingest(
	ctx context.Context, userID string, archive []byte, events chan<- ProgressEvent,
) (*types.Portfolio, error) {
	entries, skipped := p.unpack(archive)

	previous, err := p.db.Model().Portfolio().GetActive(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check previous portfolio: %w", err)
	}

	portfolio, err := p.db.Model().Portfolio().Create(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	if len(entries) == 0 {
		if err := p.db.Model().Portfolio().UpdateStatus(ctx, portfolio.ID, enum.PortfolioStatusFailed); err != nil {
			p.logger.Error("Failed to mark empty portfolio", zap.Error(err))
		}

		return nil, fmt.Errorf("%w: %d entries skipped", ErrNoValidImages, skipped)
	}

	images, err := p.storeImages(ctx, portfolio.ID, entries, 0)
	if err != nil {
		return nil, err
	}

	if err := p.analyze(ctx, portfolio, images, events); err != nil {
		return nil, err
	}

	if err := p.profiles.Invalidate(ctx, userID); err != nil {
		p.logger.Warn("Failed to invalidate profile after ingest", zap.Error(err))
	}

	// The superseded portfolio's reference images are no longer reachable;
	// its descriptors stay in the database for history.
	if previous != nil {
		if err := p.store.DeletePrefix(ctx, "portfolios/"+previous.ID.String()); err != nil {
			p.logger.Warn("Failed to clean up superseded portfolio objects",
				zap.Error(err),
				zap.String("portfolioID", previous.ID.String()))
		}
	}

	return p.db.Model().Portfolio().Get(ctx, portfolio.ID)
}

// AddImages appends a ZIP of new images to an existing portfolio, skipping
// content already present, and analyzes only the additions. The active
// profile is invalidated so the next aggregation sees the new descriptors.
func (p *Pipeline) AddImages(
	ctx context.Context, userID string, portfolioID uuid.UUID,
	archive []byte, events chan<- ProgressEvent,
) (*types.Portfolio, error) {
	portfolio, err := p.db.Model().Portfolio().Get(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	if portfolio.UserID != userID {
		return nil, fmt.Errorf("%w: portfolio %s", models.ErrNotFound, portfolioID)
	}

	entries, skipped := p.unpack(archive)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %d entries skipped", ErrNoValidImages, skipped)
	}

	existing, err := p.db.Model().Portfolio().ExistingHashes(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing hashes: %w", err)
	}

	fresh := make([]entry, 0, len(entries))

	for _, e := range entries {
		if _, ok := existing[e.hash]; !ok {
			fresh = append(fresh, e)
		}
	}

	if len(fresh) == 0 {
		p.logger.Info("Additive upload contained only duplicates",
			zap.String("portfolioID", portfolioID.String()),
			zap.Int("uploaded", len(entries)))

		return portfolio, nil
	}

	images, err := p.storeImages(ctx, portfolioID, fresh, portfolio.TotalImages)
	if err != nil {
		return nil, err
	}

	if err := p.analyze(ctx, portfolio, images, events); err != nil {
		return nil, err
	}

	if err := p.profiles.Invalidate(ctx, userID); err != nil {
		p.logger.Warn("Failed to invalidate profile after additive ingest", zap.Error(err))
	}

	return p.db.Model().Portfolio().Get(ctx, portfolioID)
}

// unpack extracts the accepted images from the archive, deduping identical
// content within the upload itself. The skipped count covers non-image
// entries, oversized files, and unreadable members.
func (p *Pipeline) unpack(archive []byte) ([]entry, int) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		p.logger.Warn("Failed to open upload archive", zap.Error(err))

		return nil, 0
	}

	var (
		entries []entry
		skipped int
	)

	seen := make(map[string]struct{})

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || junkEntry(file.Name) {
			continue
		}

		ext := strings.ToLower(path.Ext(file.Name))

		contentType, ok := imageContentTypes[ext]
		if !ok {
			skipped++

			continue
		}

		if file.UncompressedSize64 > maxImageBytes {
			p.logger.Warn("Skipping oversized archive entry",
				zap.String("name", file.Name),
				zap.Uint64("size", file.UncompressedSize64))

			skipped++

			continue
		}

		data, err := readMember(file, maxImageBytes)
		if err != nil {
			p.logger.Warn("Failed to read archive entry",
				zap.Error(err), zap.String("name", file.Name))

			skipped++

			continue
		}

		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])

		if _, dup := seen[hash]; dup {
			continue
		}

		seen[hash] = struct{}{}

		entries = append(entries, entry{
			name:        file.Name,
			data:        data,
			hash:        hash,
			contentType: contentType,
			ext:         ext,
		})
	}

	return entries, skipped
}

// storeImages uploads the entries and records them as pending portfolio rows.
func (p *Pipeline) storeImages(
	ctx context.Context, portfolioID uuid.UUID, entries []entry, orderOffset int,
) ([]*types.PortfolioImage, error) {
	images := make([]*types.PortfolioImage, 0, len(entries))

	for i, e := range entries {
		key := fmt.Sprintf("portfolios/%s/%s%s", portfolioID, e.hash, e.ext)

		_, err := utils.WithRetry(ctx, func() (struct{}, error) {
			return struct{}{}, p.store.PutObject(ctx, key, e.data, e.contentType)
		}, utils.GetUploadRetryOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", e.name, err)
		}

		images = append(images, &types.PortfolioImage{
			ID:          uuid.New(),
			PortfolioID: portfolioID,
			StorageKey:  key,
			ContentHash: e.hash,
			UploadOrder: orderOffset + i,
			Status:      enum.ImageStatusPending,
			CreatedAt:   time.Now(),
		})
	}

	if err := p.db.Model().Portfolio().InsertImages(ctx, images); err != nil {
		return nil, fmt.Errorf("failed to record images: %w", err)
	}

	return images, nil
}

// analyze fans descriptor extraction out over the batch and transitions the
// portfolio by the outcome. A portfolio superseded mid-run cancels the rest
// of the batch.
func (p *Pipeline) analyze(
	ctx context.Context, portfolio *types.Portfolio,
	images []*types.PortfolioImage, events chan<- ProgressEvent,
) error {
	var (
		mu        sync.Mutex
		processed int
		succeeded int
		previews  []string
		failures  []string
	)

	total := len(images)

	workers := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(max(1, p.concurrency)).
		WithCancelOnError()

	for _, img := range images {
		workers.Go(func(ctx context.Context) error {
			active, err := p.db.Model().Portfolio().IsActive(ctx, portfolio.ID)
			if err != nil {
				p.logger.Warn("Failed to check portfolio liveness", zap.Error(err))
			} else if !active {
				return errSuperseded
			}

			analysisErr := p.analyzeOne(ctx, img)

			mu.Lock()
			processed++

			if analysisErr != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", path.Base(img.StorageKey), analysisErr))
			} else {
				succeeded++

				if len(previews) < maxPreviewURLs {
					if url, urlErr := p.store.URL(ctx, img.StorageKey); urlErr == nil {
						previews = append(previews, url)
					}
				}
			}

			event := ProgressEvent{
				Processed:    processed,
				Total:        total,
				CurrentImage: path.Base(img.StorageKey),
				PreviewURLs:  append([]string(nil), previews...),
				Errors:       append([]string(nil), failures...),
			}
			mu.Unlock()

			if events != nil {
				select {
				case events <- event:
				case <-ctx.Done():
				}
			}

			return nil
		})
	}

	if err := workers.Wait(); err != nil {
		if errors.Is(err, errSuperseded) {
			p.logger.Info("Ingestion superseded, stopping",
				zap.String("portfolioID", portfolio.ID.String()),
				zap.Int("processed", processed))

			return errSuperseded
		}

		return fmt.Errorf("analysis fan-out failed: %w", err)
	}

	status := enum.PortfolioStatusAnalyzed
	if succeeded == 0 {
		status = enum.PortfolioStatusFailed
	}

	if err := p.db.Model().Portfolio().UpdateStatus(ctx, portfolio.ID, status); err != nil {
		return fmt.Errorf("failed to transition portfolio: %w", err)
	}

	p.logger.Info("Portfolio analysis complete",
		zap.String("portfolioID", portfolio.ID.String()),
		zap.Int("total", total),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", total-succeeded))

	if succeeded == 0 {
		return fmt.Errorf("%w: %d images failed", ErrAnalysisFailed, total)
	}

	return nil
}

// analyzeOne extracts and persists the descriptor for one image, recording
// the outcome on the image row either way.
func (p *Pipeline) analyzeOne(ctx context.Context, img *types.PortfolioImage) error {
	ref, err := p.store.URL(ctx, img.StorageKey)
	if err != nil {
		p.markImage(ctx, img.ID, enum.ImageStatusFailed, err.Error())

		return err
	}

	result, err := p.analyzer.Extract(ctx, ai.ImageInput{
		ImageID:     img.ID,
		PortfolioID: img.PortfolioID,
		Ref:         ref,
	})
	if err != nil {
		p.markImage(ctx, img.ID, enum.ImageStatusFailed, err.Error())

		return err
	}

	if err := p.db.Model().Descriptor().Replace(ctx, result.Descriptor, result.Corrections); err != nil {
		p.markImage(ctx, img.ID, enum.ImageStatusFailed, err.Error())

		return err
	}

	p.markImage(ctx, img.ID, enum.ImageStatusAnalyzed, "")

	return nil
}

func (p *Pipeline) markImage(ctx context.Context, imageID uuid.UUID, status enum.ImageStatus, lastError string) {
	if err := p.db.Model().Portfolio().UpdateImageStatus(ctx, imageID, status, lastError); err != nil {
		p.logger.Error("Failed to update image status",
			zap.Error(err),
			zap.String("imageID", imageID.String()))
	}
}

// junkEntry filters archive noise that is never an uploaded design image.
func junkEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}

	base := path.Base(name)

	return strings.HasPrefix(base, ".") || base == "Thumbs.db"
}

// errImageTooLarge marks an archive member whose real size exceeds the cap.
var errImageTooLarge = errors.New("image exceeds size limit")

// readMember extracts one archive member. The declared size can lie, so the
// read is re-checked against the cap rather than silently truncated.
func readMember(file *zip.File, limit int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > limit {
		return nil, errImageTooLarge
	}

	return data, nil
}
