package flatkv

import (
	"reflect"
	"testing"

	"github.com/sjanel/coincenter/pkg/coinerr"
)

func TestAppendAndString(t *testing.T) {
	f := New('&', '=')
	f.Append("symbol", "BTCUSDT").AppendInt("limit", 100)
	if got, want := f.String(), "symbol=BTCUSDT&limit=100"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGetAndContains(t *testing.T) {
	f := New('&', '=')
	f.Append("a", "1").Append("bb", "22").Append("c", "3")

	if !f.Contains("bb") {
		t.Error("expected Contains(bb) to be true")
	}
	if got := f.Get("bb"); got != "22" {
		t.Errorf("Get(bb) = %q, want 22", got)
	}
	if f.Contains("b") {
		t.Error("Contains(b) should be false, b is only a prefix of bb")
	}
	if got := f.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}
}

func TestSetUpdatesExistingKey(t *testing.T) {
	f := New('&', '=')
	f.Append("a", "1").Append("b", "2")
	f.Set("a", "100")
	if got, want := f.String(), "a=100&b=2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSetAppendsMissingKey(t *testing.T) {
	f := New('&', '=')
	f.Append("a", "1")
	f.Set("b", "2")
	if got, want := f.String(), "a=1&b=2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEraseStartMiddleEnd(t *testing.T) {
	base := func() *FlatKeyValue {
		return New(',', '=').Append("a", "1").Append("b", "2").Append("c", "3")
	}

	if got, want := base().Erase("a").String(), "b=2,c=3"; got != want {
		t.Errorf("erase first = %q, want %q", got, want)
	}
	if got, want := base().Erase("b").String(), "a=1,c=3"; got != want {
		t.Errorf("erase middle = %q, want %q", got, want)
	}
	if got, want := base().Erase("c").String(), "a=1,b=2"; got != want {
		t.Errorf("erase last = %q, want %q", got, want)
	}
}

func TestEraseMissingKeyIsNoop(t *testing.T) {
	f := New(',', '=').Append("a", "1")
	f.Erase("missing")
	if got, want := f.String(), "a=1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAppendAll(t *testing.T) {
	a := New('&', '=').Append("a", "1")
	b := New('&', '=').Append("b", "2").Append("c", "3")
	a.AppendAll(b)
	if got, want := a.String(), "a=1&b=2&c=3"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPairs(t *testing.T) {
	f := New('&', '=').Append("a", "1").Append("b", "2")
	want := [][2]string{{"a", "1"}, {"b", "2"}}
	if got := f.Pairs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Pairs() = %v, want %v", got, want)
	}
}

func TestToMapExpandsArrayValues(t *testing.T) {
	f := New('&', '=').Append("tags", "x,y,")
	got := f.ToMap()
	want := []string{"x", "y"}
	gotSlice, ok := got["tags"].([]string)
	if !ok {
		t.Fatalf("tags value is %T, want []string", got["tags"])
	}
	if !reflect.DeepEqual(gotSlice, want) {
		t.Errorf("tags = %v, want %v", gotSlice, want)
	}
}

func TestToSigningStringPreservesInsertionOrder(t *testing.T) {
	f := New('&', '=').AppendInt("ts", 1621785125200).Append("symbol", "BTCEUR").Append("side", "BUY")
	want := "ts=1621785125200&symbol=BTCEUR&side=BUY"
	if got := f.ToSigningString(); got != want {
		t.Errorf("ToSigningString() = %q, want %q", got, want)
	}
	f.Set("symbol", "ETHEUR")
	if got := f.ToSigningString(); got != "ts=1621785125200&symbol=ETHEUR&side=BUY" {
		t.Errorf("Set must not move unrelated keys, got %q", got)
	}
}

func TestURLEncodeExceptEscapesReservedBytes(t *testing.T) {
	f := New('&', '=').Append("q", "a b/c")
	got := f.URLEncodeExcept("=&")
	want := "q=a%20b%2Fc"
	if got != want {
		t.Errorf("URLEncodeExcept() = %q, want %q", got, want)
	}
}

func TestTryAppendRejectsValueContainingSeparator(t *testing.T) {
	f := New('&', '=')
	err := f.TryAppend("a", "1&2")
	if err == nil {
		t.Fatal("expected an error for a value containing the pair separator")
	}
	ce, ok := err.(*coinerr.Error)
	if !ok || ce.Kind != coinerr.DuplicateSeparatorInValue {
		t.Errorf("err = %v, want coinerr.DuplicateSeparatorInValue", err)
	}
}

func TestAppendPanicsOnDuplicateSeparatorInValue(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Append to panic on a value containing a separator byte")
		}
	}()
	New('&', '=').Append("a", "1=2")
}

func TestEmptyAndClear(t *testing.T) {
	f := New('&', '=')
	if !f.Empty() {
		t.Error("new FlatKeyValue should be empty")
	}
	f.Append("a", "1")
	if f.Empty() {
		t.Error("should not be empty after Append")
	}
	f.Clear()
	if !f.Empty() {
		t.Error("should be empty after Clear")
	}
}
