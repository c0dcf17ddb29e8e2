package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	// ItemCacheTTL is the time-to-live for cached catalog items.
	ItemCacheTTL = 24 * time.Hour

	itemCacheKeyPrefix = "item"
)

// CachedItem is the denormalized catalog read model stored in Redis.
// Quantity may lag the database until the stock_moved subscriber evicts it.
type CachedItem struct {
	ID                uuid.UUID
	BranchID          uuid.UUID
	Name              string
	SKU               string
	Barcode           string
	CategoryID        uuid.UUID
	Unit              string
	CostPrice         decimal.Decimal
	SellingPrice      decimal.Decimal
	Quantity          int
	LowStockThreshold int
	ReorderPoint      int
	IsActive          bool
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ItemCache provides structured read/write operations for item cache entries.
// Key format: "item:{itemID}"
type ItemCache struct {
	client *RedisClient
}

// NewItemCache creates a new ItemCache backed by the given RedisClient.
func NewItemCache(r *RedisClient) *ItemCache {
	return &ItemCache{client: r}
}

// Get retrieves a cached item.
// Returns redis.Nil error when the key does not exist or has expired.
func (c *ItemCache) Get(ctx context.Context, itemID uuid.UUID) (*CachedItem, error) {
	vals, err := c.client.Client().HGetAll(ctx, c.key(itemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil // key not found
	}
	return decodeItem(vals)
}

// Set writes a cached item as a Redis hash with a 24-hour TTL.
// Uses a pipeline to set all fields and the TTL atomically.
func (c *ItemCache) Set(ctx context.Context, item *CachedItem) error {
	key := c.key(item.ID)
	pipe := c.client.Client().TxPipeline()
	pipe.HSet(ctx, key, encodeItem(item)...)
	pipe.Expire(ctx, key, ItemCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes cached items.
func (c *ItemCache) Delete(ctx context.Context, itemIDs ...uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = c.key(id)
	}
	if err := c.client.Client().Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// key builds the Redis key: "item:{itemID}"
func (c *ItemCache) key(itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", itemCacheKeyPrefix, itemID)
}

func encodeItem(item *CachedItem) []any {
	return []any{
		"id", item.ID.String(),
		"branch_id", item.BranchID.String(),
		"name", item.Name,
		"sku", item.SKU,
		"barcode", item.Barcode,
		"category_id", item.CategoryID.String(),
		"unit", item.Unit,
		"cost_price", item.CostPrice.String(),
		"selling_price", item.SellingPrice.String(),
		"quantity", strconv.Itoa(item.Quantity),
		"low_stock_threshold", strconv.Itoa(item.LowStockThreshold),
		"reorder_point", strconv.Itoa(item.ReorderPoint),
		"is_active", strconv.FormatBool(item.IsActive),
		"created_by", item.CreatedBy.String(),
		"created_at", item.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at", item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeItem(vals map[string]string) (*CachedItem, error) {
	var (
		item CachedItem
		err  error
	)
	if item.ID, err = uuid.Parse(vals["id"]); err != nil {
		return nil, fmt.Errorf("cache parse id: %w", err)
	}
	if item.BranchID, err = uuid.Parse(vals["branch_id"]); err != nil {
		return nil, fmt.Errorf("cache parse branch_id: %w", err)
	}
	if item.CategoryID, err = parseOptionalUUID(vals["category_id"]); err != nil {
		return nil, fmt.Errorf("cache parse category_id: %w", err)
	}
	if item.CreatedBy, err = parseOptionalUUID(vals["created_by"]); err != nil {
		return nil, fmt.Errorf("cache parse created_by: %w", err)
	}
	if item.CostPrice, err = decimal.NewFromString(vals["cost_price"]); err != nil {
		return nil, fmt.Errorf("cache parse cost_price: %w", err)
	}
	if item.SellingPrice, err = decimal.NewFromString(vals["selling_price"]); err != nil {
		return nil, fmt.Errorf("cache parse selling_price: %w", err)
	}
	if item.Quantity, err = strconv.Atoi(vals["quantity"]); err != nil {
		return nil, fmt.Errorf("cache parse quantity: %w", err)
	}
	if item.LowStockThreshold, err = strconv.Atoi(vals["low_stock_threshold"]); err != nil {
		return nil, fmt.Errorf("cache parse low_stock_threshold: %w", err)
	}
	if item.ReorderPoint, err = strconv.Atoi(vals["reorder_point"]); err != nil {
		return nil, fmt.Errorf("cache parse reorder_point: %w", err)
	}
	if item.IsActive, err = strconv.ParseBool(vals["is_active"]); err != nil {
		return nil, fmt.Errorf("cache parse is_active: %w", err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, vals["created_at"]); err != nil {
		return nil, fmt.Errorf("cache parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, vals["updated_at"]); err != nil {
		return nil, fmt.Errorf("cache parse updated_at: %w", err)
	}
	item.Name = vals["name"]
	item.SKU = vals["sku"]
	item.Barcode = vals["barcode"]
	item.Unit = vals["unit"]
	return &item, nil
}

// parseOptionalUUID maps an absent field to uuid.Nil so hashes written
// before the field existed still decode.
func parseOptionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
