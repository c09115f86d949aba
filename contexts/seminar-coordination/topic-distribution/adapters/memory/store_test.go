package memory

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	domainerrors "topicdesk/contexts/seminar-coordination/topic-distribution/domain/errors"
	"topicdesk/contexts/seminar-coordination/topic-distribution/ports"
)

func seedSubject(t *testing.T, store *Store, name string, topics map[int]string) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.CreateSubject(ctx, name, time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("create subject %q: %v", name, err)
	}
	if _, err := store.ReplaceTopics(ctx, name, topics); err != nil {
		t.Fatalf("load topics for %q: %v", name, err)
	}
}

func TestClaimExactlyOneWinnerUnderContention(t *testing.T) {
	store := NewStore()
	seedSubject(t, store, "databases", map[int]string{1: "B-trees"})
	now := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	const claimants = 50
	var wg sync.WaitGroup
	results := make([]error, claimants)
	start := make(chan struct{})
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := store.Claim(context.Background(), "databases", 1, "claimant-"+strconv.Itoa(i), "user", now)
			results[i] = err
		}(i)
	}
	close(start)
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domainerrors.ErrTopicAlreadyClaimed):
			losers++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if winners != 1 || losers != claimants-1 {
		t.Fatalf("expected 1 winner and %d losers, got %d/%d", claimants-1, winners, losers)
	}
}

func TestClaimFailureOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedSubject(t, store, "databases", map[int]string{1: "B-trees"})
	startAt := time.Date(2026, time.April, 2, 18, 0, 0, 0, time.UTC)
	if _, err := store.SetStartTime(ctx, "databases", startAt); err != nil {
		t.Fatalf("set start time: %v", err)
	}
	before := startAt.Add(-30 * time.Minute)

	if _, err := store.Claim(ctx, "nope", 1, "u1", "User One", before); !errors.Is(err, domainerrors.ErrUnknownSubject) {
		t.Fatalf("expected ErrUnknownSubject, got %v", err)
	}
	// Unknown topic outranks the closed gate.
	if _, err := store.Claim(ctx, "databases", 99, "u1", "User One", before); !errors.Is(err, domainerrors.ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic, got %v", err)
	}
	_, err := store.Claim(ctx, "databases", 1, "u1", "User One", before)
	var notOpen *domainerrors.NotOpenError
	if !errors.As(err, &notOpen) {
		t.Fatalf("expected NotOpenError, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrDistributionNotOpen) {
		t.Fatal("NotOpenError must unwrap to ErrDistributionNotOpen")
	}
	if notOpen.Remaining != 30*time.Minute {
		t.Fatalf("expected 30m remaining, got %v", notOpen.Remaining)
	}

	// The boundary instant counts as open.
	if _, err := store.Claim(ctx, "databases", 1, "u1", "User One", startAt); err != nil {
		t.Fatalf("claim at the exact start instant should succeed, got %v", err)
	}
	if _, err := store.Claim(ctx, "databases", 1, "u2", "User Two", startAt.Add(time.Second)); !errors.Is(err, domainerrors.ErrTopicAlreadyClaimed) {
		t.Fatalf("expected ErrTopicAlreadyClaimed, got %v", err)
	}
}

func TestReplaceTopicsFinalizedByRegistrations(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedSubject(t, store, "databases", map[int]string{1: "B-trees", 2: "Hash joins"})
	now := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	// Re-set before any claim is allowed.
	if _, err := store.ReplaceTopics(ctx, "databases", map[int]string{1: "LSM trees"}); err != nil {
		t.Fatalf("replace before claims: %v", err)
	}
	if _, err := store.Claim(ctx, "databases", 1, "u1", "User One", now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := store.ReplaceTopics(ctx, "databases", map[int]string{1: "B-trees"}); !errors.Is(err, domainerrors.ErrTopicSetFinalized) {
		t.Fatalf("expected ErrTopicSetFinalized, got %v", err)
	}
}

func TestRemoveRegistrationFreesTopic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedSubject(t, store, "databases", map[int]string{1: "B-trees"})
	now := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	if _, err := store.Claim(ctx, "databases", 1, "u1", "User One", now); err != nil {
		t.Fatalf("claim: %v", err)
	}
	removed, err := store.RemoveRegistration(ctx, "databases", 1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.ClaimantID != "u1" {
		t.Fatalf("expected removed registration of u1, got %q", removed.ClaimantID)
	}
	if _, err := store.RemoveRegistration(ctx, "databases", 1); !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("second removal should report ErrNotRegistered, got %v", err)
	}
	if _, err := store.Claim(ctx, "databases", 1, "u2", "User Two", now.Add(time.Minute)); err != nil {
		t.Fatalf("re-claim after removal: %v", err)
	}
}

func TestListRegistrationsOrdersByClaimTime(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedSubject(t, store, "databases", map[int]string{1: "B-trees", 2: "Hash joins", 3: "WAL"})
	base := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	claims := []struct {
		number int
		user   string
		at     time.Time
	}{
		{2, "u2", base.Add(2 * time.Minute)},
		{1, "u1", base},
		{3, "u3", base.Add(time.Minute)},
	}
	for _, c := range claims {
		if _, err := store.Claim(ctx, "databases", c.number, c.user, c.user, c.at); err != nil {
			t.Fatalf("claim %d: %v", c.number, err)
		}
	}

	regs, err := store.ListRegistrations(ctx, "databases")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, 0, len(regs))
	for _, reg := range regs {
		got = append(got, reg.ClaimantID)
	}
	want := []string{"u1", "u3", "u2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestListOpenSubjectsSkipsGatedAndEmpty(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	seedSubject(t, store, "open-now", map[int]string{1: "A"})
	seedSubject(t, store, "gated", map[int]string{1: "B"})
	if _, err := store.SetStartTime(ctx, "gated", now.Add(time.Hour)); err != nil {
		t.Fatalf("set start time: %v", err)
	}
	if _, err := store.CreateSubject(ctx, "no-topics", now); err != nil {
		t.Fatalf("create: %v", err)
	}

	open, err := store.ListOpenSubjects(ctx, now)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0] != "open-now" {
		t.Fatalf("expected only open-now, got %v", open)
	}
}

func TestTakePendingExpiresAndConsumes(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, time.April, 1, 10, 0, 0, 0, time.UTC)

	claim := ports.PendingClaim{Token: "tok-1", TopicNumber: 3, ClaimantID: "u1", DisplayName: "User One", ExpiresAt: now.Add(10 * time.Minute)}
	if err := store.PutPending(ctx, claim); err != nil {
		t.Fatalf("put pending: %v", err)
	}
	got, found, err := store.TakePending(ctx, "tok-1", now)
	if err != nil || !found {
		t.Fatalf("expected live pending claim, found=%v err=%v", found, err)
	}
	if got.TopicNumber != 3 {
		t.Fatalf("expected topic 3, got %d", got.TopicNumber)
	}
	// Take consumes.
	if _, found, _ := store.TakePending(ctx, "tok-1", now); found {
		t.Fatal("second take should not find the token")
	}

	if err := store.PutPending(ctx, ports.PendingClaim{Token: "tok-2", TopicNumber: 4, ClaimantID: "u1", ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("put pending: %v", err)
	}
	if _, found, _ := store.TakePending(ctx, "tok-2", now.Add(2*time.Minute)); found {
		t.Fatal("expired token should be treated as absent")
	}
}

func TestSubjectSnapshotCountdown(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedSubject(t, store, "databases", map[int]string{1: "B-trees"})
	startAt := time.Date(2026, time.April, 3, 12, 30, 0, 0, time.UTC)
	if _, err := store.SetStartTime(ctx, "databases", startAt); err != nil {
		t.Fatalf("set start time: %v", err)
	}

	snapshot, err := store.GetSnapshot(ctx, "databases", startAt.Add(-(26*time.Hour + 4*time.Minute + 30*time.Second)))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Open {
		t.Fatal("snapshot before start must be closed")
	}
	if got := snapshot.Countdown(); got != "1d 2h 4m" {
		t.Fatalf("expected countdown 1d 2h 4m, got %q", got)
	}

	snapshot, err = store.GetSnapshot(ctx, "databases", startAt)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snapshot.Open || snapshot.Countdown() != "" {
		t.Fatalf("snapshot at the start instant must be open with no countdown, got open=%v countdown=%q", snapshot.Open, snapshot.Countdown())
	}
}
