package itemlayer

import "testing"

type marshalable struct {
	Name string
	Age  int
}

func TestJSONSizeEstimatorMeasuresEncodedLength(t *testing.T) {
	e := NewJSONSizeEstimator[marshalable]()
	got := e.EstimateSize(marshalable{Name: "alice", Age: 30})
	if got == 0 {
		t.Fatal("expected a non-zero size estimate")
	}
}

func TestJSONSizeEstimatorFallsBackOnUnmarshalableValue(t *testing.T) {
	e := NewJSONSizeEstimator[chan int]()
	got := e.EstimateSize(make(chan int))
	if got != fallbackSize {
		t.Fatalf("EstimateSize(chan) = %d, want fallback %d", got, fallbackSize)
	}
}
