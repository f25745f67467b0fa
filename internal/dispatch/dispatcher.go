// Package dispatch orchestrates per-row extraction: priority ordering,
// the Phase 1 early-stop walk, and the conditional Phase 2 renderer
// pass over hosts the row saw blocked.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/extract"
	"github.com/basketdata/aisle-crawler/internal/metrics"
	"github.com/basketdata/aisle-crawler/internal/pipeline"
	"github.com/basketdata/aisle-crawler/internal/retailer"
)

// Dispatcher walks one row at a time. Retailer processing inside a row
// is strictly sequential so the early-stop contract holds.
type Dispatcher struct {
	fetcher  pipeline.Fetcher
	renderer pipeline.Renderer
	registry *extract.Registry
	logger   *zap.Logger

	// optional raw-page archival
	blobs      pipeline.BlobStore
	hasher     pipeline.Hasher
	blobPrefix string
}

// New wires a Dispatcher.
func New(fetcher pipeline.Fetcher, renderer pipeline.Renderer, registry *extract.Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		fetcher:  fetcher,
		renderer: renderer,
		registry: registry,
		logger:   logger,
	}
}

// WithArchive enables raw-body archival for accepted pages.
func (d *Dispatcher) WithArchive(blobs pipeline.BlobStore, hasher pipeline.Hasher, prefix string) *Dispatcher {
	d.blobs = blobs
	d.hasher = hasher
	d.blobPrefix = strings.Trim(prefix, "/")
	return d
}

// rowBlockSet is the row-scoped blocked-host snapshot Phase 2 reads.
type rowBlockSet struct {
	order []string
	seen  map[string]struct{}
}

func newRowBlockSet() *rowBlockSet {
	return &rowBlockSet{seen: make(map[string]struct{})}
}

func (s *rowBlockSet) MarkBlocked(retailerID string) {
	if _, ok := s.seen[retailerID]; ok {
		return
	}
	s.seen[retailerID] = struct{}{}
	s.order = append(s.order, retailerID)
}

func (s *rowBlockSet) Blocked() []string {
	return append([]string(nil), s.order...)
}

// ProcessRow runs both phases for one row and returns the aggregated
// outcome. No error escapes the row boundary.
func (d *Dispatcher) ProcessRow(ctx context.Context, row pipeline.ProductRow) pipeline.RowOutcome {
	metrics.IncActiveRows()
	defer metrics.DecActiveRows()

	outcome := pipeline.RowOutcome{
		ProductCode: row.ProductCode,
		PerRetailer: make(map[string]pipeline.ExtractionOutcome),
	}

	ordered, links := orderedRetailers(row)
	blocked := newRowBlockSet()

	best := d.phaseOne(ctx, ordered, links, blocked, &outcome)
	if best == nil || best.Score < extract.ScoreThreshold {
		best = d.phaseTwo(ctx, blocked, links, best, &outcome)
	}

	outcome.Best = best
	if best != nil {
		metrics.ObserveRow("success")
	} else {
		metrics.ObserveRow("failed")
	}
	return outcome
}

// orderedRetailers normalizes, prioritizes, and filters the row's store
// links. Entries with non-HTTP URLs keep an error outcome downstream
// but are excluded from fetching.
func orderedRetailers(row pipeline.ProductRow) ([]string, map[string]string) {
	links := make(map[string]string, len(row.StoreLinks))
	ids := make([]string, 0, len(row.StoreLinks))
	for name, link := range row.StoreLinks {
		id := retailer.Normalize(name)
		if _, dup := links[id]; dup {
			continue
		}
		links[id] = link
		ids = append(ids, id)
	}
	return retailer.SortByPriority(ids), links
}

func validURL(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}

// phaseOne walks retailers in priority order, stopping at the first
// outcome that clears the threshold.
func (d *Dispatcher) phaseOne(
	ctx context.Context,
	ordered []string,
	links map[string]string,
	blocked pipeline.BlockRecorder,
	outcome *pipeline.RowOutcome,
) *pipeline.ExtractionOutcome {
	var best *pipeline.ExtractionOutcome

	// the skip set is settled before the walk so an early stop never
	// leaves a skipped retailer without its outcome
	for _, id := range ordered {
		if _, skip := retailer.ProblematicRetailers[id]; skip && validURL(links[id]) {
			outcome.PerRetailer[id] = pipeline.ExtractionOutcome{
				RetailerID: id, URL: links[id],
				Status: pipeline.StatusSkipped,
				Debug:  "retailer in skip set",
			}
		}
	}

	for _, id := range ordered {
		if ctx.Err() != nil {
			break
		}
		link := links[id]

		if !validURL(link) {
			outcome.PerRetailer[id] = pipeline.ExtractionOutcome{
				RetailerID: id, URL: link,
				Status: pipeline.StatusError,
				Debug:  "store link is not http(s)",
			}
			continue
		}
		if _, skip := retailer.ProblematicRetailers[id]; skip {
			continue
		}

		result := d.fetcher.Fetch(ctx, link, id)
		if result.StatusHint == pipeline.FetchBlocked {
			blocked.MarkBlocked(id)
			metrics.ObserveBlocked(id)
		}

		entry := d.evaluate(id, link, result)
		outcome.PerRetailer[id] = entry

		if entry.Status == pipeline.StatusSuccess {
			if entry.Score >= extract.ScoreThreshold {
				return &entry
			}
			if best == nil || entry.Score > best.Score {
				clone := entry
				best = &clone
			}
		}
	}
	return best
}

// phaseTwo retries blocked hosts through the external renderer, in
// priority order, only while no outcome has reached the threshold.
func (d *Dispatcher) phaseTwo(
	ctx context.Context,
	blocked pipeline.BlockRecorder,
	links map[string]string,
	best *pipeline.ExtractionOutcome,
	outcome *pipeline.RowOutcome,
) *pipeline.ExtractionOutcome {
	if d.renderer == nil {
		return best
	}
	for _, id := range retailer.SortByPriority(blocked.Blocked()) {
		if ctx.Err() != nil || d.renderer.Exhausted() {
			break
		}
		profile := retailer.Lookup(id)
		if profile.SkipExternalRenderer {
			continue
		}
		link := links[id]

		result := d.renderer.Render(ctx, link, id)
		entry := d.evaluate(id, link, result)

		if entry.Status == pipeline.StatusSuccess {
			outcome.PerRetailer[id] = entry
			if entry.Score >= extract.ScoreThreshold {
				return &entry
			}
			if best == nil || entry.Score > best.Score {
				clone := entry
				best = &clone
			}
		}
	}
	return best
}

// evaluate turns a fetch result into an extraction outcome. Extractors
// run only on valid bodies.
func (d *Dispatcher) evaluate(id, link string, result pipeline.FetchResult) pipeline.ExtractionOutcome {
	entry := pipeline.ExtractionOutcome{
		RetailerID: id,
		URL:        link,
		Method:     result.Method,
	}

	if !result.OK() {
		profile := retailer.Lookup(id)
		switch {
		case result.StatusHint == pipeline.FetchBlocked:
			entry.Status = pipeline.StatusFetchFailed
			entry.Debug = "host blocked"
		case profile.URLHasCategoryPath:
			// the retailer could have told us from the URL alone, but a
			// dead fetch means no page to confirm against
			entry.Status = pipeline.StatusNoBreadcrumbs
			entry.Debug = fmt.Sprintf("fetch %s, url inference not confirmed", result.StatusHint)
		default:
			entry.Status = pipeline.StatusFetchFailed
			entry.Debug = fmt.Sprintf("fetch %s", result.StatusHint)
		}
		return entry
	}

	doc, err := extract.ParseDocument(result.Body)
	if err != nil {
		entry.Status = pipeline.StatusError
		entry.Debug = err.Error()
		return entry
	}

	raw, tag := d.registry.ExtractFor(id, doc, result.Body, link)
	crumbs := extract.Normalize(id, raw)
	if len(crumbs) == 0 {
		entry.Status = pipeline.StatusNoBreadcrumbs
		entry.Debug = "no breadcrumbs extracted"
		return entry
	}

	entry.Breadcrumbs = crumbs
	entry.Method = tag
	entry.Score = extract.Score(crumbs, id, link)
	entry.Status = pipeline.StatusSuccess
	metrics.ObserveScore(id, entry.Score)

	if uri := d.archive(id, result.Body); uri != "" {
		entry.Debug = "archived " + uri
	}
	return entry
}

// archive stores the accepted body when archival is configured.
func (d *Dispatcher) archive(id string, body []byte) string {
	if d.blobs == nil || d.hasher == nil {
		return ""
	}
	hash, err := d.hasher.Hash(body)
	if err != nil {
		return ""
	}
	path := fmt.Sprintf("%s/%s.html", id, hash)
	if d.blobPrefix != "" {
		path = d.blobPrefix + "/" + path
	}
	uri, err := d.blobs.PutObject(context.Background(), path, "text/html; charset=utf-8", strings.NewReader(string(body)))
	if err != nil {
		d.logger.Warn("archive failed", zap.String("retailer", id), zap.Error(err))
		return ""
	}
	return uri
}

// BuildRecords emits exactly one sink record per store link in the row,
// with the joined breadcrumbs for successes and FAILED otherwise.
func BuildRecords(row pipeline.ProductRow, outcome pipeline.RowOutcome) []pipeline.SinkRecord {
	records := make([]pipeline.SinkRecord, 0, len(row.StoreLinks))
	for name, link := range row.StoreLinks {
		id := retailer.Normalize(name)
		aisle := pipeline.FailedAisle
		if entry, ok := outcome.PerRetailer[id]; ok && entry.Status == pipeline.StatusSuccess {
			aisle = extract.JoinAisle(entry.Breadcrumbs)
		}
		records = append(records, pipeline.SinkRecord{
			ProductCode: row.ProductCode,
			Store:       id,
			StoreLink:   link,
			Aisle:       aisle,
		})
	}
	return records
}
