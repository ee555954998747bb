package value

import "testing"

func TestDictOrderPreserved(t *testing.T) {
	d := NewDict()
	d.Set("b", Int(2))
	d.Set("a", Int(1))
	d.Set("b", Int(3)) // overwrite shouldn't move position
	got := d.Keys()
	want := []string{"b", "a"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
	v, _ := d.Get("b")
	if v.Int != 3 {
		t.Fatalf("got %d, want 3", v.Int)
	}
}

func TestDictSortedKeys(t *testing.T) {
	d := NewDict()
	d.Set("z", Int(1))
	d.Set("a", Int(2))
	got := d.SortedKeys()
	if got[0] != "a" || got[1] != "z" {
		t.Fatalf("got %v", got)
	}
}

func TestDictMerge(t *testing.T) {
	d1 := NewDict()
	d1.Set("a", Int(1))
	d2 := NewDict()
	d2.Set("a", Int(2))
	d2.Set("b", Int(3))
	d1.Merge(d2)
	va, _ := d1.Get("a")
	vb, _ := d1.Get("b")
	if va.Int != 2 || vb.Int != 3 {
		t.Fatalf("got a=%d b=%d", va.Int, vb.Int)
	}
}

func TestTruthyRejectsNonBool(t *testing.T) {
	_, err := Int(1).Truthy()
	if err == nil {
		t.Fatal("expected error coercing int to bool")
	}
	b, err := Bool(true).Truthy()
	if err != nil || !b {
		t.Fatalf("got %v, %v", b, err)
	}
}

func TestEqualArraysAndDicts(t *testing.T) {
	a := Array(Int(1), Str("x"))
	b := Array(Int(1), Str("x"))
	c := Array(Int(1), Str("y"))
	if !Equal(a, b) {
		t.Fatal("expected equal arrays")
	}
	if Equal(a, c) {
		t.Fatal("expected unequal arrays")
	}

	d1 := NewDict()
	d1.Set("k", Int(1))
	d2 := NewDict()
	d2.Set("k", Int(1))
	if !Equal(DictValue(d1), DictValue(d2)) {
		t.Fatal("expected equal dicts")
	}
}

func TestAnyDisabler(t *testing.T) {
	if !AnyDisabler(Int(1), Disabler()) {
		t.Fatal("expected disabler detected")
	}
	if AnyDisabler(Int(1), Str("x")) {
		t.Fatal("expected no disabler")
	}
}

func TestUnsetAndDisablerIdentity(t *testing.T) {
	if !Unset().IsUnset() {
		t.Fatal("expected IsUnset")
	}
	if !Disabler().IsDisabler() {
		t.Fatal("expected IsDisabler")
	}
	if Unset().IsDisabler() || Disabler().IsUnset() {
		t.Fatal("sentinels must not cross-identify")
	}
}

func TestStringRendering(t *testing.T) {
	if Bool(true).String() != "true" {
		t.Fatal("bool rendering")
	}
	if Array(Int(1), Int(2)).String() != "[1, 2]" {
		t.Fatalf("got %q", Array(Int(1), Int(2)).String())
	}
}
