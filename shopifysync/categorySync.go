package shopifysync

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/shopify_budget/config"
	"github.com/mmdatafocus/shopify_budget/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const productsQuery = `
query Products($first: Int!, $after: String, $namespace: String!, $key: String!) {
  products(first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    nodes {
      legacyResourceId
      metafield(namespace: $namespace, key: $key) { value }
    }
  }
}`

type SyncerOptions struct {
	Endpoint      string
	Token         string
	Metafield     string
	RatePerMinute int64
	PageSize      int
}

func OptionsFromSettings(s *config.Settings) SyncerOptions {
	return SyncerOptions{
		Endpoint:      AdminEndpoint(s.ShopifyShopDomain, s.ShopifyAPIVersion),
		Token:         s.ShopifyAdminToken,
		Metafield:     s.ShopifyGLMetafield,
		RatePerMinute: s.ShopifyRatePerMinute,
		PageSize:      100,
	}
}

// CategorySyncer copies the GL-code metafield of every product into
// products.shopify_category.
type CategorySyncer struct {
	db          *gorm.DB
	client      *adminClient
	namespace   string
	key         string
	pageSize    int
	invalidator ReportInvalidator
	logger      *logrus.Logger
}

// NewCategorySyncer builds a syncer; invalidator may be nil when no report
// cache is in use.
func NewCategorySyncer(db *gorm.DB, opts SyncerOptions, invalidator ReportInvalidator, logger *logrus.Logger) (*CategorySyncer, error) {
	namespace, key, ok := strings.Cut(strings.TrimSpace(opts.Metafield), ".")
	if !ok || namespace == "" || key == "" {
		return nil, errors.New("metafield must be namespace.key")
	}
	client, err := newAdminClient(opts.Endpoint, opts.Token, opts.RatePerMinute)
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 || opts.PageSize > 250 {
		opts.PageSize = 100
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CategorySyncer{
		db:          db,
		client:      client,
		namespace:   namespace,
		key:         key,
		pageSize:    opts.PageSize,
		invalidator: invalidator,
		logger:      logger,
	}, nil
}

func (s *CategorySyncer) Close() {
	s.client.Close()
}

type productsPage struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Nodes []struct {
			LegacyResourceId string `json:"legacyResourceId"`
			Metafield        *struct {
				Value string `json:"value"`
			} `json:"metafield"`
		} `json:"nodes"`
	} `json:"products"`
}

// Run pages through every product. Products without the metafield are
// counted as missing and left untouched. Cached reports are dropped once any
// product changed category, including when a later page fails.
func (s *CategorySyncer) Run(ctx context.Context) (stats SyncStats, err error) {
	var after *string
	defer func() {
		if stats.Updated > 0 && s.invalidator != nil {
			s.invalidator.InvalidateAll(context.WithoutCancel(ctx))
		}
	}()

	for {
		vars := map[string]interface{}{
			"first":     s.pageSize,
			"namespace": s.namespace,
			"key":       s.key,
		}
		if after != nil {
			vars["after"] = *after
		}

		var page productsPage
		if err := s.client.query(ctx, productsQuery, vars, &page); err != nil {
			config.LogError(s.logger, "shopifysync", "CategorySyncer.Run", "query products", stats, err)
			return stats, err
		}
		stats.Pages++

		for _, node := range page.Products.Nodes {
			stats.Scanned++
			productId, err := parseInt64(node.LegacyResourceId)
			if err != nil {
				stats.Missing++
				continue
			}
			if node.Metafield == nil || strings.TrimSpace(node.Metafield.Value) == "" {
				stats.Missing++
				continue
			}
			category := models.DecodeCategoryName(node.Metafield.Value)
			changed, err := models.SetProductCategory(ctx, s.db, productId, category)
			if err != nil {
				config.LogError(s.logger, "shopifysync", "CategorySyncer.Run", "SetProductCategory", productId, err)
				return stats, err
			}
			if changed {
				stats.Updated++
			}
		}

		if !page.Products.PageInfo.HasNextPage {
			break
		}
		cursor := page.Products.PageInfo.EndCursor
		after = &cursor
	}

	s.logger.WithFields(logrus.Fields{
		"module":  "shopifysync",
		"scanned": stats.Scanned,
		"updated": stats.Updated,
		"missing": stats.Missing,
		"pages":   stats.Pages,
	}).Info("category sync finished")
	return stats, nil
}
