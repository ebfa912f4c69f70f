package middleware

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(1.0), // 1 msg/sec
		Burst:           3,
		CleanupInterval: time.Hour, // テスト中に走らない間隔
	}
}

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testConfig())
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow(100) {
			t.Errorf("バースト内の%d回目の呼び出しは許可されるべき", i+1)
		}
	}
	if rl.Allow(100) {
		t.Error("バースト超過後は拒否されるべき")
	}
}

func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := NewRateLimiter(testConfig())
	defer rl.Stop()

	// ユーザー100のバーストを使い切る
	for i := 0; i < 3; i++ {
		rl.Allow(100)
	}
	if rl.Allow(100) {
		t.Error("ユーザー100は拒否されるべき")
	}

	// 別ユーザーには影響しない
	if !rl.Allow(200) {
		t.Error("ユーザー200は独立に許可されるべき")
	}
}

func TestRateLimiter_LimiterCount(t *testing.T) {
	rl := NewRateLimiter(testConfig())
	defer rl.Stop()

	rl.Allow(100)
	rl.Allow(200)
	rl.Allow(100) // 既存エントリの再利用

	if got := rl.LimiterCount(); got != 2 {
		t.Errorf("LimiterCount() = %d, want 2", got)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	config := testConfig()
	config.CleanupInterval = 10 * time.Millisecond

	rl := NewRateLimiter(config)
	defer rl.Stop()

	rl.Allow(100)

	// TTL（CleanupIntervalの2倍）経過後にエントリが削除される
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.LimiterCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("期限切れエントリがクリーンアップされていない")
}

func TestRateLimiter_DefaultConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()

	if config.Rate != rate.Limit(30.0/60.0) {
		t.Errorf("Rate = %v, want 0.5", config.Rate)
	}
	if config.Burst != 10 {
		t.Errorf("Burst = %d, want 10", config.Burst)
	}
	if config.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v", config.CleanupInterval)
	}
}
