package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type exampleStore struct {
	claimed map[string]bool
}

func (s *exampleStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (s *exampleStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.claimed[key] {
		return false, nil
	}
	s.claimed[key] = true
	return true, nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *exampleStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.claimed, key)
	}
	return nil
}

func ExampleManager_Claim() {
	ctx := context.Background()
	manager, _ := NewManager(&exampleStore{claimed: map[string]bool{}}, 7*24*time.Hour)
	eventID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	first, _ := manager.Claim(ctx, "notification-dispatcher", eventID)
	second, _ := manager.Claim(ctx, "notification-dispatcher", eventID)
	_ = manager.Release(ctx, "notification-dispatcher", eventID)
	third, _ := manager.Claim(ctx, "notification-dispatcher", eventID)

	fmt.Println(first, second, third)
	// Output: true false true
}
