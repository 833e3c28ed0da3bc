package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Every method must reject a nil or unconfigured repository with an error
// rather than panicking; the notification module relies on that contract.
func TestNilRepository_MethodsReturnErrors(t *testing.T) {
	var r *Repository
	ctx := context.Background()

	if _, err := r.Insert(ctx, InsertParams{Channel: "email", Template: "match_offers"}); err == nil {
		t.Fatal("Insert on nil repository should error")
	}
	if _, err := r.ClaimPending(ctx, 10); err == nil {
		t.Fatal("ClaimPending on nil repository should error")
	}
	if _, err := r.ReleaseStale(ctx, 5*time.Minute); err == nil {
		t.Fatal("ReleaseStale on nil repository should error")
	}
	if err := r.MarkPending(ctx, uuid.Nil, nil); err == nil {
		t.Fatal("MarkPending on nil repository should error")
	}
}

func TestUnconfiguredRepository_InsertValidates(t *testing.T) {
	r := New(nil)

	if _, err := r.Insert(context.Background(), InsertParams{}); err == nil {
		t.Fatal("Insert without a pool should error")
	}
}
