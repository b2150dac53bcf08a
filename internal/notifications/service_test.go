package notifications

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
)

func newTestService(t *testing.T) (*service, *profile.MemoryStore) {
	t.Helper()
	store := profile.NewMemoryStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return impl, store
}

func TestRecordAndDrain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Record(ctx, "v1", enums.NoticeSuccess, "Added to cart"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record(ctx, "v1", enums.NoticeError, fmt.Sprintf("could not update %s", "Lamp")); err != nil {
		t.Fatalf("record error: %v", err)
	}

	notices, err := svc.Drain(ctx, "v1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(notices) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(notices))
	}
	if notices[1].Level != enums.NoticeError || notices[1].Message != "could not update Lamp" {
		t.Fatalf("unexpected notice %+v", notices[1])
	}
	if notices[0].ID == "" || !notices[0].CreatedAt.Equal(svc.now()) {
		t.Fatalf("notice missing id or timestamp %+v", notices[0])
	}

	again, err := svc.Drain(ctx, "v1")
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("drain should clear notices, got %d", len(again))
	}
}

func TestRecordCapsPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < MaxPending+5; i++ {
		if err := svc.Record(ctx, "v1", enums.NoticeInfo, fmt.Sprintf("n%d", i)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	notices, err := svc.List(ctx, "v1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notices) != MaxPending {
		t.Fatalf("expected %d notices, got %d", MaxPending, len(notices))
	}
	if notices[0].Message != "n5" {
		t.Fatalf("oldest notices should be dropped first, got %s", notices[0].Message)
	}
}

func TestListSkipsCorruptEntries(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	if err := store.Append(ctx, "v1", profile.ListNotifications, MaxPending, "{not json"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := svc.Record(ctx, "v1", enums.NoticeInfo, "ok"); err != nil {
		t.Fatalf("record: %v", err)
	}
	notices, err := svc.List(ctx, "v1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notices) != 1 || notices[0].Message != "ok" {
		t.Fatalf("unexpected notices %+v", notices)
	}
}

func TestDrainDuringConcurrentRecordsKeepsEveryNotice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	const recorded = MaxPending

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		drained int
	)
	for i := 0; i < recorded; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if err := svc.Record(ctx, "v1", enums.NoticeError, fmt.Sprintf("cart failure %d", i)); err != nil {
				t.Errorf("record: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			notices, err := svc.Drain(ctx, "v1")
			if err != nil {
				t.Errorf("drain: %v", err)
				return
			}
			mu.Lock()
			drained += len(notices)
			mu.Unlock()
		}()
	}
	wg.Wait()

	rest, err := svc.Drain(ctx, "v1")
	if err != nil {
		t.Fatalf("final drain: %v", err)
	}
	if got := drained + len(rest); got != recorded {
		t.Fatalf("expected %d notices across drains, got %d", recorded, got)
	}
}

func TestRequiresVisitor(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Record(context.Background(), "", enums.NoticeInfo, "x")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
