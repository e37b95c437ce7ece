package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/devgould/petstudio/internal/mq"
	"github.com/devgould/petstudio/internal/orchestrator"
)

type fakeChecker struct {
	checked []uuid.UUID
	err     error
}

func (f *fakeChecker) CheckOrder(_ context.Context, orderID uuid.UUID) error {
	f.checked = append(f.checked, orderID)
	return f.err
}

func checkDelivery(orderID uuid.UUID) *mq.Delivery {
	return &mq.Delivery{
		Message: mq.Message{
			ID:      uuid.New().String(),
			Type:    mq.MessageTypeOrderCheck,
			Payload: mq.OrderCheckPayload{OrderID: orderID},
		},
	}
}

func TestHandleOrderCheck(t *testing.T) {
	checker := &fakeChecker{}
	w := New(Config{Checker: checker})

	orderID := uuid.New()
	if err := w.handleOrderCheck(context.Background(), checkDelivery(orderID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(checker.checked) != 1 || checker.checked[0] != orderID {
		t.Errorf("expected check for %s, got %v", orderID, checker.checked)
	}
}

func TestHandleOrderCheck_OrderNotFoundIsAcked(t *testing.T) {
	checker := &fakeChecker{
		err: fmt.Errorf("%w: gone", orchestrator.ErrOrderNotFound),
	}
	w := New(Config{Checker: checker})

	// Пропавший заказ не должен уходить в DLQ
	if err := w.handleOrderCheck(context.Background(), checkDelivery(uuid.New())); err != nil {
		t.Fatalf("expected nil for missing order, got %v", err)
	}
}

func TestHandleOrderCheck_CheckErrorPropagates(t *testing.T) {
	checkErr := errors.New("provider down")
	checker := &fakeChecker{err: checkErr}
	w := New(Config{Checker: checker})

	err := w.handleOrderCheck(context.Background(), checkDelivery(uuid.New()))
	if !errors.Is(err, checkErr) {
		t.Fatalf("expected check error to propagate, got %v", err)
	}
}

func TestHandleOrderCheck_BadPayload(t *testing.T) {
	checker := &fakeChecker{}
	w := New(Config{Checker: checker})

	delivery := &mq.Delivery{
		Message: mq.Message{
			Type:    mq.MessageTypeOrderCheck,
			Payload: map[string]any{"order_id": "not-a-uuid"},
		},
	}

	if err := w.handleOrderCheck(context.Background(), delivery); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if len(checker.checked) != 0 {
		t.Errorf("checker must not be called, got %v", checker.checked)
	}
}

func TestStart_RequiresChecker(t *testing.T) {
	w := New(Config{})
	if err := w.Start(context.Background()); !errors.Is(err, ErrCheckerNotSet) {
		t.Fatalf("expected ErrCheckerNotSet, got %v", err)
	}
}
