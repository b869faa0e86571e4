package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
)

type stubSequencer struct {
	values map[string]int64
	ttl    time.Duration
	err    error
}

func (s *stubSequencer) NextSequence(ctx context.Context, name string, ttl time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.values == nil {
		s.values = map[string]int64{}
	}
	s.ttl = ttl
	s.values[name]++
	return s.values[name], nil
}

func TestNumberGeneratorIsMonotonicPerMonth(t *testing.T) {
	seq := &stubSequencer{}
	gen, err := NewNumberGenerator(seq)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	march := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)

	first, _ := gen.Next(context.Background(), march)
	second, _ := gen.Next(context.Background(), march)
	april, _ := gen.Next(context.Background(), march.Add(2*time.Hour))

	if first != "BM-202403-000001" || second != "BM-202403-000002" {
		t.Fatalf("unexpected march numbers %s %s", first, second)
	}
	if april != "BM-202404-000001" {
		t.Fatalf("expected counter to restart for april, got %s", april)
	}
	if seq.ttl != orderNumberCounterTTL {
		t.Fatalf("unexpected counter ttl %s", seq.ttl)
	}
}

func TestNumberGeneratorPropagatesErrors(t *testing.T) {
	gen, _ := NewNumberGenerator(&stubSequencer{err: errors.New("redis down")})
	if _, err := gen.Next(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewNumberGenerator(nil); err == nil {
		t.Fatal("expected constructor error")
	}
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "lost race")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third call, got err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryOnConflict(context.Background(), 2, func(ctx context.Context) error {
		calls++
		return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "lost race")
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict) || calls != 3 {
		t.Fatalf("expected conflict after 3 calls, got err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryOnConflict(context.Background(), 5, func(ctx context.Context) error {
		calls++
		return pkgerrors.New(pkgerrors.CodeDependency, "db down")
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) || calls != 1 {
		t.Fatalf("dependency errors must not be retried, got err=%v calls=%d", err, calls)
	}
}
