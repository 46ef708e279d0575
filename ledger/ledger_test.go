package ledger

import (
	"sync"
	"testing"
)

func TestConsumeOnce(t *testing.T) {
	s := NewStore()

	if s.Consumed("sig-1") {
		t.Fatal("fresh signature reported consumed")
	}
	if !s.Consume("sig-1") {
		t.Fatal("first consume failed")
	}
	if s.Consume("sig-1") {
		t.Fatal("second consume succeeded")
	}
	if !s.Consumed("sig-1") {
		t.Fatal("consumed signature not reported")
	}
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	s := NewStore()

	const n = 32
	var wg sync.WaitGroup
	winners := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Consume("contested") {
				winners <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(winners)

	if got := len(winners); got != 1 {
		t.Fatalf("winners = %d, want exactly 1", got)
	}
}

func TestCreditFloorsAtZero(t *testing.T) {
	s := NewStore()

	rec := s.Credit("walletA", 5)
	if rec.Score != 5 {
		t.Errorf("score = %d, want 5", rec.Score)
	}
	rec = s.Credit("walletA", -20)
	if rec.Score != 0 {
		t.Errorf("score = %d, want 0 (floored)", rec.Score)
	}
	if rec.LastUpdated.IsZero() {
		t.Error("lastUpdated not set")
	}
}

func TestLeaderboardOrder(t *testing.T) {
	s := NewStore()
	s.Credit("low", 1)
	s.Credit("high", 10)
	s.Credit("mid", 5)

	board := s.Leaderboard()
	if len(board) != 3 {
		t.Fatalf("leaderboard size = %d, want 3", len(board))
	}
	if board[0].Wallet != "high" || board[1].Wallet != "mid" || board[2].Wallet != "low" {
		t.Errorf("leaderboard order = %s, %s, %s", board[0].Wallet, board[1].Wallet, board[2].Wallet)
	}
}

func TestLookupMissing(t *testing.T) {
	s := NewStore()
	if _, ok := s.Lookup("nobody"); ok {
		t.Fatal("lookup of unknown wallet succeeded")
	}
}
