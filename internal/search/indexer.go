package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
)

// Document is the searchable projection of a product, keyed by product code.
type Document struct {
	Code              string   `json:"code"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Brand             string   `json:"brand"`
	Keywords          []string `json:"keywords"`
	BestSeller        bool     `json:"best_seller"`
	SellingPriceCents int64    `json:"selling_price_cents"`
	Available         bool     `json:"available"`
	RatingAverage     float64  `json:"rating_average"`
	RatingCount       int64    `json:"rating_count"`
}

func NewDocument(p *models.Product) Document {
	return Document{
		Code:              p.Code,
		Name:              p.Name,
		Description:       p.Description,
		Category:          string(p.Category),
		Brand:             p.Brand,
		Keywords:          []string(p.Keywords),
		BestSeller:        p.BestSeller,
		SellingPriceCents: p.SellingPriceCents,
		Available:         p.Available,
		RatingAverage:     p.RatingAverage,
		RatingCount:       p.RatingCount,
	}
}

type Indexer struct {
	es    *elasticsearch.Client
	index string
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	return &Indexer{es: es, index: index}
}

func (i *Indexer) IndexProduct(ctx context.Context, p *models.Product) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(NewDocument(p)); err != nil {
		return fmt.Errorf("encode product %s: %w", p.Code, err)
	}

	res, err := i.es.Index(
		i.index,
		&buf,
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(p.Code),
	)
	if err != nil {
		return fmt.Errorf("index product %s: %w", p.Code, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index product %s: %s: %s", p.Code, res.Status(), body)
	}
	return nil
}

// DeleteProduct drops the product document. A missing document is not an error.
func (i *Indexer) DeleteProduct(ctx context.Context, code string) error {
	res, err := i.es.Delete(i.index, code, i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete product %s: %w", code, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete product %s: %s: %s", code, res.Status(), body)
	}
	return nil
}
