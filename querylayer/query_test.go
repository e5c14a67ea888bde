package querylayer

import (
	"testing"
	"time"

	"github.com/arjunmehta/entitycache/keys"
)

func TestSetThenGetResultRoundTrips(t *testing.T) {
	q := New()
	fp := keys.QueryFingerprint("ticket:abc")
	result := Result{ItemKeys: []string{"ticket:1", "ticket:2"}, IsComplete: true, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Minute)}

	q.SetResult(fp, result, nil)

	got, ok := q.GetResult(fp)
	if !ok {
		t.Fatal("expected a hit for a freshly stored result")
	}
	if len(got.ItemKeys) != 2 {
		t.Fatalf("expected 2 item keys, got %d", len(got.ItemKeys))
	}
}

func TestGetResultMissesWhenExpired(t *testing.T) {
	q := New()
	fp := keys.QueryFingerprint("ticket:abc")
	result := Result{ItemKeys: []string{"ticket:1"}, ExpiresAt: time.Now().Add(-time.Second)}
	q.SetResult(fp, result, nil)

	if _, ok := q.GetResult(fp); ok {
		t.Fatal("expected expired result to miss")
	}
}

func TestInvalidateQueriesContainingItem(t *testing.T) {
	q := New()
	fpA := keys.QueryFingerprint("a")
	fpB := keys.QueryFingerprint("b")
	future := time.Now().Add(time.Minute)

	q.SetResult(fpA, Result{ItemKeys: []string{"ticket:1", "ticket:2"}, ExpiresAt: future}, nil)
	q.SetResult(fpB, Result{ItemKeys: []string{"ticket:3"}, ExpiresAt: future}, nil)

	q.InvalidateQueriesContainingItem("ticket:1")

	if _, ok := q.GetResult(fpA); ok {
		t.Fatal("expected query referencing the invalidated item to be dropped")
	}
	if _, ok := q.GetResult(fpB); !ok {
		t.Fatal("expected unrelated query to survive")
	}
}

func TestInvalidateLocationMatchesPrefix(t *testing.T) {
	q := New()
	future := time.Now().Add(time.Minute)
	orgScoped := []keys.LocationCoordinate{{Type: "org", Token: "1"}}
	teamScoped := []keys.LocationCoordinate{{Type: "org", Token: "1"}, {Type: "team", Token: "9"}}
	otherOrg := []keys.LocationCoordinate{{Type: "org", Token: "2"}}

	fp1 := keys.QueryFingerprint("1")
	fp2 := keys.QueryFingerprint("2")
	fp3 := keys.QueryFingerprint("3")
	q.SetResult(fp1, Result{ExpiresAt: future}, orgScoped)
	q.SetResult(fp2, Result{ExpiresAt: future}, teamScoped)
	q.SetResult(fp3, Result{ExpiresAt: future}, otherOrg)

	q.InvalidateLocation(orgScoped)

	if _, ok := q.GetResult(fp1); ok {
		t.Fatal("expected exact-prefix match to be invalidated")
	}
	if _, ok := q.GetResult(fp2); ok {
		t.Fatal("expected a longer path under the same prefix to be invalidated")
	}
	if _, ok := q.GetResult(fp3); !ok {
		t.Fatal("expected a query scoped to a different org to survive")
	}
}

func TestInvalidateLocationEmptyPrefixOnlyMatchesRootScoped(t *testing.T) {
	q := New()
	future := time.Now().Add(time.Minute)
	root := keys.QueryFingerprint("root")
	scoped := keys.QueryFingerprint("scoped")

	q.SetResult(root, Result{ExpiresAt: future}, nil)
	q.SetResult(scoped, Result{ExpiresAt: future}, []keys.LocationCoordinate{{Type: "org", Token: "1"}})

	q.InvalidateLocation(nil)

	if _, ok := q.GetResult(root); ok {
		t.Fatal("expected root-scoped query to be invalidated by an empty location prefix")
	}
	if _, ok := q.GetResult(scoped); !ok {
		t.Fatal("expected a location-scoped query to survive an empty-prefix invalidation")
	}
}

func TestClearDropsEverything(t *testing.T) {
	q := New()
	q.SetResult(keys.QueryFingerprint("a"), Result{ExpiresAt: time.Now().Add(time.Minute)}, nil)
	q.Clear()

	if q.Size() != 0 {
		t.Fatalf("expected Size() == 0 after Clear, got %d", q.Size())
	}
}
