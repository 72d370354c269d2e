package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bandhanapp/backend/internal/domain/enums"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	return mr, goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestRegisterStrikeBansAtThreshold(t *testing.T) {
	mr, client := newTestClient(t)
	defer mr.Close()

	repo := NewBlockRepo(client)
	ctx := context.Background()
	blockTTL := 7 * 24 * time.Hour

	for i := 1; i <= 2; i++ {
		count, banned, err := repo.RegisterStrike(ctx, 7, 3, blockTTL)
		if err != nil {
			t.Fatalf("strike #%d: %v", i, err)
		}
		if count != i || banned {
			t.Fatalf("unexpected strike #%d: count=%d banned=%v", i, count, banned)
		}
	}

	count, banned, err := repo.RegisterStrike(ctx, 7, 3, blockTTL)
	if err != nil {
		t.Fatalf("strike #3: %v", err)
	}
	if count != 3 || !banned {
		t.Fatalf("expected ban on third strike: count=%d banned=%v", count, banned)
	}

	// The counter is consumed by the ban and replaced with the block flag.
	if mr.Exists(strikeKey(7)) {
		t.Fatal("strike counter must be deleted on ban")
	}
	blocked, err := repo.IsBlocked(ctx, 7)
	if err != nil {
		t.Fatalf("is blocked: %v", err)
	}
	if !blocked {
		t.Fatal("expected block flag after ban")
	}

	mr.FastForward(blockTTL + time.Second)
	blocked, err = repo.IsBlocked(ctx, 7)
	if err != nil {
		t.Fatalf("is blocked after ttl: %v", err)
	}
	if blocked {
		t.Fatal("block flag must expire with its ttl")
	}
}

func TestManualBlockAndUnblock(t *testing.T) {
	mr, client := newTestClient(t)
	defer mr.Close()

	repo := NewBlockRepo(client)
	ctx := context.Background()

	if err := repo.Block(ctx, 7, enums.BlockReasonManual, 30*24*time.Hour); err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked, _ := repo.IsBlocked(ctx, 7); !blocked {
		t.Fatal("expected manual block flag")
	}

	if got, err := mr.Get(blockKey(7)); err != nil || got != "manual" {
		t.Fatalf("unexpected block flag value: %q err=%v", got, err)
	}

	if err := repo.Unblock(ctx, 7); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if blocked, _ := repo.IsBlocked(ctx, 7); blocked {
		t.Fatal("expected block flag cleared")
	}
}
