package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

type Writer struct {
	dataset *bigquery.Dataset
	links   *bigquery.Inserter
	orders  *bigquery.Inserter
}

func NewWriter(client *bigquery.Client, dataset string) *Writer {
	ds := client.Dataset(dataset)
	return &Writer{
		dataset: ds,
		links:   ds.Table(TableLinkCreated).Inserter(),
		orders:  ds.Table(TableOrderConversions).Inserter(),
	}
}

func (w *Writer) InsertLinkCreated(ctx context.Context, row LinkCreatedRow) error {
	if err := w.links.Put(ctx, row); err != nil {
		return fmt.Errorf("insert %s: %w", TableLinkCreated, err)
	}
	return nil
}

func (w *Writer) InsertOrderConversion(ctx context.Context, row OrderConversionRow) error {
	if err := w.orders.Put(ctx, row); err != nil {
		return fmt.Errorf("insert %s: %w", TableOrderConversions, err)
	}
	return nil
}

// EnsureTables creates the dataset and both tables when they do not exist yet.
func (w *Writer) EnsureTables(ctx context.Context) error {
	if err := w.dataset.Create(ctx, nil); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create dataset: %w", err)
	}
	tables := map[string]bigquery.Schema{
		TableLinkCreated:      LinkCreatedSchema,
		TableOrderConversions: OrderConversionSchema,
	}
	for name, schema := range tables {
		err := w.dataset.Table(name).Create(ctx, &bigquery.TableMetadata{Schema: schema})
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusConflict
}
