// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package factors

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/tomtom215/folio/internal/recommend"
)

func testRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test fixture
}

// ratings is a small 4×4 rating matrix with two clear taste groups.
func ratings() []recommend.Triple {
	return []recommend.Triple{
		{User: 0, Item: 0, Rating: 5}, {User: 0, Item: 1, Rating: 4}, {User: 0, Item: 3, Rating: 1},
		{User: 1, Item: 0, Rating: 4}, {User: 1, Item: 1, Rating: 5}, {User: 1, Item: 2, Rating: 1},
		{User: 2, Item: 2, Rating: 5}, {User: 2, Item: 3, Rating: 4}, {User: 2, Item: 0, Rating: 1},
		{User: 3, Item: 2, Rating: 4}, {User: 3, Item: 3, Rating: 5}, {User: 3, Item: 1, Rating: 2},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero factors", func(c *Config) { c.Factors = 0 }, true},
		{"negative factors", func(c *Config) { c.Factors = -3 }, true},
		{"negative epochs", func(c *Config) { c.Epochs = -1 }, true},
		{"zero epochs", func(c *Config) { c.Epochs = 0 }, false},
		{"zero learning rate", func(c *Config) { c.LearningRate = 0 }, true},
		{"negative regularization", func(c *Config) { c.Regularization = -0.1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestTrainRejectsNonPositiveFactors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Factors = 0
	if _, err := Train(context.Background(), ratings(), 4, 4, cfg, testRNG(42)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Train() error = %v, want ErrInvalidConfig", err)
	}
}

func TestTrainEmpty(t *testing.T) {
	t.Parallel()

	rng := testRNG(7)
	m, err := Train(context.Background(), nil, 3, 5, DefaultConfig(), rng)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if m.Status() != StatusUntrained {
		t.Errorf("Status() = %v, want %v", m.Status(), StatusUntrained)
	}
	if m.Trained() {
		t.Error("Trained() = true, want false")
	}
	if got := m.Predict(0, 0); got != 0 {
		t.Errorf("Predict() = %v, want 0", got)
	}
	if got := m.PredictUser(1); !reflect.DeepEqual(got, make([]float64, 5)) {
		t.Errorf("PredictUser() = %v, want five zeros", got)
	}
	if m.Users() != 3 || m.Items() != 5 || m.Factors() != DefaultConfig().Factors {
		t.Errorf("shape = %d users × %d items × %d factors, want 3 × 5 × %d",
			m.Users(), m.Items(), m.Factors(), DefaultConfig().Factors)
	}
	if len(m.Loss()) != 0 {
		t.Errorf("Loss() = %v, want empty", m.Loss())
	}
}

func TestTrainEmptyKeepsInitialFactors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Factors = 3
	m, err := Train(context.Background(), nil, 2, 4, cfg, testRNG(7))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if m.users == nil || m.items == nil {
		t.Fatal("factor matrices are nil, want their random initial state")
	}
	if r, c := m.users.Dims(); r != 2 || c != 3 {
		t.Errorf("user factors = %d×%d, want 2×3", r, c)
	}
	if r, c := m.items.Dims(); r != 4 || c != 3 {
		t.Errorf("item factors = %d×%d, want 4×3", r, c)
	}

	// Same draws as a fresh initialization from the same seed.
	rng := testRNG(7)
	want := initFactors(2, 3, cfg.InitScale, rng)
	if !reflect.DeepEqual(m.users.RawMatrix().Data, want.RawMatrix().Data) {
		t.Error("user factors differ from the seeded initialization")
	}
	nonZero := false
	for _, v := range m.items.RawMatrix().Data {
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Error("item factors are all zero, want random initial values")
	}

	st := m.State()
	if st.Status != StatusUntrained || len(st.UserFactors) != 6 || len(st.ItemFactors) != 12 {
		t.Errorf("State() = status %v with %d/%d factors, want untrained with 6/12",
			st.Status, len(st.UserFactors), len(st.ItemFactors))
	}
	restored, err := FromState(st)
	if err != nil {
		t.Fatalf("FromState() error = %v", err)
	}
	if restored.Trained() || restored.items == nil {
		t.Errorf("restored model trained=%v items=%v, want untrained with initial factors", restored.Trained(), restored.items)
	}
}

func TestTrainIgnoresOutOfRangeTriples(t *testing.T) {
	t.Parallel()

	m, err := Train(context.Background(), []recommend.Triple{
		{User: 5, Item: 0, Rating: 3},
		{User: 0, Item: -1, Rating: 3},
	}, 2, 2, DefaultConfig(), testRNG(42))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if m.Trained() {
		t.Error("Trained() = true with no usable triples")
	}
}

func TestSingleTripleConverges(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Factors:        8,
		LearningRate:   0.01,
		Regularization: 0.001,
		Epochs:         100,
		InitScale:      0.1,
		Workers:        1,
	}
	triple := []recommend.Triple{{User: 0, Item: 0, Rating: 4}}

	var epochs int
	cfg.OnEpoch = func(epoch int, _ float64) {
		if epoch != epochs {
			t.Errorf("OnEpoch epoch = %d, want %d", epoch, epochs)
		}
		epochs++
	}

	m, err := Train(context.Background(), triple, 1, 1, cfg, testRNG(42))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if epochs != 100 {
		t.Errorf("OnEpoch called %d times, want 100", epochs)
	}

	loss := m.Loss()
	if len(loss) != 100 {
		t.Fatalf("len(Loss()) = %d, want 100", len(loss))
	}
	for i := 1; i < len(loss); i++ {
		if loss[i] > loss[i-1] {
			t.Fatalf("loss rose at epoch %d: %v > %v", i, loss[i], loss[i-1])
		}
	}
	if final := math.Abs(4 - m.Predict(0, 0)); final >= math.Sqrt(loss[0]) {
		t.Errorf("final error %v not below initial error %v", final, math.Sqrt(loss[0]))
	}
}

func TestTrainDeterministic(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2, 3} {
		cfg := DefaultConfig()
		cfg.Factors = 4
		cfg.Epochs = 30
		cfg.Workers = workers

		a, err := Train(context.Background(), ratings(), 4, 4, cfg, testRNG(42))
		if err != nil {
			t.Fatalf("Train(workers=%d) error = %v", workers, err)
		}
		b, err := Train(context.Background(), ratings(), 4, 4, cfg, testRNG(42))
		if err != nil {
			t.Fatalf("Train(workers=%d) error = %v", workers, err)
		}
		if !reflect.DeepEqual(a.State(), b.State()) {
			t.Errorf("workers=%d: two runs with the same seed differ", workers)
		}
	}
}

func TestTrainLearnsPreferences(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 2} {
		cfg := DefaultConfig()
		cfg.Factors = 4
		cfg.Epochs = 400
		cfg.LearningRate = 0.02
		cfg.Workers = workers

		m, err := Train(context.Background(), ratings(), 4, 4, cfg, testRNG(42))
		if err != nil {
			t.Fatalf("Train() error = %v", err)
		}
		if !m.Trained() {
			t.Fatal("Trained() = false")
		}
		if rmse := m.RMSE(ratings()); rmse > 0.5 {
			t.Errorf("workers=%d: RMSE = %v, want <= 0.5", workers, rmse)
		}
		scores := m.PredictUser(0)
		if scores[0] <= scores[3] {
			t.Errorf("workers=%d: user 0 scores item 0 (%v) not above item 3 (%v)", workers, scores[0], scores[3])
		}
		for i, s := range scores {
			if want := m.Predict(0, i); math.Abs(s-want) > 1e-12 {
				t.Errorf("PredictUser()[%d] = %v, want %v", i, s, want)
			}
		}
	}
}

func TestTrainCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 2} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		if _, err := Train(ctx, ratings(), 4, 4, cfg, testRNG(42)); !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: Train() error = %v, want context.Canceled", workers, err)
		}
	}
}

func TestPredictOutOfRange(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Epochs = 5
	m, err := Train(context.Background(), ratings(), 4, 4, cfg, testRNG(42))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if got := m.Predict(9, 0); got != 0 {
		t.Errorf("Predict(unknown user) = %v, want 0", got)
	}
	if got := m.PredictUser(-1); !reflect.DeepEqual(got, make([]float64, 4)) {
		t.Errorf("PredictUser(-1) = %v, want zeros", got)
	}
	if got := m.RMSE(nil); got != 0 {
		t.Errorf("RMSE(nil) = %v, want 0", got)
	}
}

func TestStateRestore(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Epochs = 10
	m, err := Train(context.Background(), ratings(), 4, 4, cfg, testRNG(42))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	restored, err := FromState(m.State())
	if err != nil {
		t.Fatalf("FromState() error = %v", err)
	}
	if !reflect.DeepEqual(m.PredictUser(2), restored.PredictUser(2)) {
		t.Error("restored model predicts differently")
	}

	bad := m.State()
	bad.ItemFactors = bad.ItemFactors[:3]
	if _, err := FromState(bad); err == nil {
		t.Error("FromState(truncated factors) error = nil, want error")
	}

	untrained, err := FromState(State{Factors: 4, Users: 2, Items: 2})
	if err != nil {
		t.Fatalf("FromState(untrained) error = %v", err)
	}
	if untrained.Trained() {
		t.Error("restored untrained model reports trained")
	}
}
