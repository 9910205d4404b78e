package forest

import (
	"testing"
)

func separable(n int) ([][]float64, []int) {
	X := make([][]float64, 0, n)
	y := make([]int, 0, n)
	for i := 0; i < n; i++ {
		label := i % 2
		X = append(X, []float64{float64(label), float64(i) * 0.1})
		y = append(y, label)
	}
	return X, y
}

func TestFitSeparable(t *testing.T) {
	X, y := separable(20)
	f, err := Fit(X, y, Config{Trees: 25, MaxDepth: 4, MinLeaf: 1, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	pos, err := f.Proba([]float64{1, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	neg, err := f.Proba([]float64{0, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if pos < 0.8 {
		t.Fatalf("expected high probability for positive region, got %v", pos)
	}
	if neg > 0.2 {
		t.Fatalf("expected low probability for negative region, got %v", neg)
	}
}

func TestFitDeterministicWithSeed(t *testing.T) {
	X, y := separable(30)
	a, err := Fit(X, y, Config{Trees: 10, MaxDepth: 4, MinLeaf: 1, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fit(X, y, Config{Trees: 10, MaxDepth: 4, MinLeaf: 1, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range X {
		pa, _ := a.Proba(x)
		pb, _ := b.Proba(x)
		if pa != pb {
			t.Fatalf("same seed produced different probabilities: %v vs %v", pa, pb)
		}
	}
}

func TestFitSingleClass(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []int{1, 1, 1}
	if _, err := Fit(X, y, Config{Trees: 5, Seed: 7}); err == nil {
		t.Fatal("expected error for single-class labels")
	}
}

func TestFitEmpty(t *testing.T) {
	if _, err := Fit(nil, nil, Config{Trees: 5}); err == nil {
		t.Fatal("expected error for empty set")
	}
}

func TestProbaDimensionMismatch(t *testing.T) {
	X, y := separable(10)
	f, err := Fit(X, y, Config{Trees: 3, Seed: 9})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Proba([]float64{1}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
