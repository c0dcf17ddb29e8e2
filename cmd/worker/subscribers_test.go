package main

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/pkg/logger"
	inventoryevents "github.com/ghuser/branchpos/services/inventory/domain/events"
	salesevents "github.com/ghuser/branchpos/services/sales/domain/events"
)

type recordingItems struct {
	deleted []uuid.UUID
	err     error
}

func (r *recordingItems) Delete(_ context.Context, ids ...uuid.UUID) error {
	r.deleted = append(r.deleted, ids...)
	return r.err
}

type recordingStats struct {
	deleted []string
	err     error
}

func (r *recordingStats) Delete(_ context.Context, keys ...string) error {
	r.deleted = append(r.deleted, keys...)
	return r.err
}

func newMsg(t *testing.T, v any) *message.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return message.NewMessage(watermill.NewUUID(), b)
}

func testLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

func TestHandleStockMoved_EvictsItem(t *testing.T) {
	items := &recordingItems{}
	itemID := uuid.New()
	h := handleStockMoved(items, testLogger())

	err := h(context.Background(), newMsg(t, inventoryevents.StockMovedEvent{
		EventID: uuid.New(), Version: 1, ItemID: itemID, Type: "sale", Delta: -2, NewQuantity: 3, OccurredAt: time.Now(),
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(items.deleted) != 1 || items.deleted[0] != itemID {
		t.Errorf("deleted = %v, want [%s]", items.deleted, itemID)
	}
}

func TestHandleStockMoved_CacheErrorIsRetried(t *testing.T) {
	items := &recordingItems{err: errors.New("redis down")}
	h := handleStockMoved(items, testLogger())

	err := h(context.Background(), newMsg(t, inventoryevents.StockMovedEvent{ItemID: uuid.New()}))
	if err == nil {
		t.Fatal("expected error so the bus retries the message")
	}
}

func TestHandlePricingChanged_EvictsItem(t *testing.T) {
	items := &recordingItems{}
	itemID := uuid.New()
	h := handlePricingChanged(items, testLogger())

	if err := h(context.Background(), newMsg(t, inventoryevents.ItemPricingChangedEvent{ItemID: itemID})); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !slices.Equal(items.deleted, []uuid.UUID{itemID}) {
		t.Errorf("deleted = %v", items.deleted)
	}
}

func TestHandleSaleCompleted_InvalidatesStats(t *testing.T) {
	branch := uuid.New()

	tests := []struct {
		name   string
		branch uuid.UUID
		want   []string
	}{
		{"branch sale", branch, []string{"all", branch.String()}},
		{"unassigned sale", uuid.Nil, []string{"all"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &recordingStats{}
			h := handleSaleCompleted(stats, testLogger())
			err := h(context.Background(), newMsg(t, salesevents.SaleCompletedEvent{
				EventID: uuid.New(), Version: 1, SaleID: uuid.New(), BranchID: tt.branch, Total: "10", Profit: "2",
			}))
			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			if !slices.Equal(stats.deleted, tt.want) {
				t.Errorf("deleted = %v, want %v", stats.deleted, tt.want)
			}
		})
	}
}

func TestHandlers_RejectMalformedPayload(t *testing.T) {
	bad := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	for _, s := range subscriptions(&recordingItems{}, &recordingStats{}, testLogger()) {
		if err := s.handler(context.Background(), bad); err == nil {
			t.Errorf("%s: expected decode error", s.topic)
		}
	}
}

func TestSubscriptions_CoverPublishedTopics(t *testing.T) {
	var topics []string
	for _, s := range subscriptions(nil, nil, testLogger()) {
		topics = append(topics, s.topic)
	}
	for _, want := range []string{
		inventoryevents.TopicItemCreated,
		inventoryevents.TopicStockMoved,
		inventoryevents.TopicItemPricingChange,
		inventoryevents.TopicStockAlertRaised,
		salesevents.TopicSaleCompleted,
	} {
		if !slices.Contains(topics, want) {
			t.Errorf("no subscriber for %s", want)
		}
	}
}
