package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/listingdesk/listingdesk/internal/mirror"
)

const exportPrefix = "exports/"

// ObjectStore is the slice of object storage the export needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// ExportService writes every listing as CSV to object storage, in the mirror's
// column order.
type ExportService struct {
	store   Store
	objects ObjectStore
	now     func() time.Time
}

func NewExportService(store Store, objects ObjectStore) *ExportService {
	return &ExportService{store: store, objects: objects, now: time.Now}
}

// Export uploads the CSV and returns its object key and the number of
// listings it holds.
func (s *ExportService) Export(ctx context.Context) (string, int, error) {
	var buf bytes.Buffer
	count, err := s.WriteCSV(ctx, &buf)
	if err != nil {
		return "", 0, err
	}

	if err := s.objects.EnsureBucket(ctx); err != nil {
		return "", 0, fmt.Errorf("ensure bucket %s: %w", s.objects.Bucket(), err)
	}
	key := ExportKey(s.now())
	if err := s.objects.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		return "", 0, fmt.Errorf("upload %s: %w", key, err)
	}
	return key, count, nil
}

// WriteCSV writes the header and one record per listing to w and returns the
// number of listings written.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	listings, err := s.store.Listings().ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list listings: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(mirror.Columns); err != nil {
		return 0, err
	}
	for _, listing := range listings {
		if err := cw.Write(mirror.NewRow(listing).Strings()); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(listings), nil
}

// ExportKey names the export object for t.
func ExportKey(t time.Time) string {
	return exportPrefix + "listings-" + t.UTC().Format("20060102T150405Z") + ".csv"
}
