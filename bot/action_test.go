package bot

import (
	"errors"
	"testing"

	"edabot/lifecycle"
)

func TestParseActionKeywords(t *testing.T) {
	cases := map[string]ActionKind{
		"show_cart":          ActShowCart,
		"clear_cart":         ActClearCart,
		"back_to_categories": ActBackToCategories,
		"back_to_start":      ActBackToStart,
		"make_order":         ActMakeOrder,
		"checkout":           ActCheckout,
		"confirm_client":     ActConfirmClient,
		"edit_client":        ActEditClient,
		"new_order":          ActNewOrder,
		"noop":               ActNoop,
	}
	for data, want := range cases {
		a, err := ParseAction(data)
		if err != nil {
			t.Errorf("%q: unexpected error %v", data, err)
			continue
		}
		if a.Kind != want {
			t.Errorf("%q: kind %d, want %d", data, a.Kind, want)
		}
	}
}

func TestParseActionDish(t *testing.T) {
	a, err := ParseAction("dish:first:2:0")
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActDish || a.Category != "first" || a.DishID != 2 || a.Page != 0 {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestParseActionPage(t *testing.T) {
	a, err := ParseAction("page:drinks:3")
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActPage || a.Category != "drinks" || a.Page != 3 {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestParseActionOrderSet(t *testing.T) {
	a, err := ParseAction("order:set:17:preparing")
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActOrderSet || a.OrderID != 17 || a.Status != lifecycle.StatusPreparing {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestParseActionOrderSetCourier(t *testing.T) {
	a, err := ParseAction("order:setcourier:17")
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActOrderSetCourier || a.OrderID != 17 {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestParseActionReorder(t *testing.T) {
	a, err := ParseAction("reorder:9")
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActReorder || a.OrderID != 9 {
		t.Fatalf("unexpected action %+v", a)
	}
}

func TestParseActionCommentTopics(t *testing.T) {
	for _, topic := range []string{"food", "delivery", "skip"} {
		a, err := ParseAction("comment:" + topic)
		if err != nil {
			t.Fatalf("comment:%s: %v", topic, err)
		}
		if a.Kind != ActComment || a.Topic != topic {
			t.Fatalf("unexpected action %+v", a)
		}
	}
}

func TestParseActionMalformed(t *testing.T) {
	bad := []string{
		"",
		"dish",
		"dish:first",
		"dish:first:abc:0",
		"dish:first:1:xx",
		"dish:first:1:0:extra",
		"page:first",
		"page:first:one",
		"cat:",
		"comment:rude",
		"reorder:abc",
		"order:set:17",
		"order:set:xx:preparing",
		"order:set:17:shipped",
		"order:setcourier:17:extra",
		"order:refresh:abc",
		"order:unknown:17",
		"unknown_keyword",
	}
	for _, data := range bad {
		if _, err := ParseAction(data); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: expected ErrMalformed, got %v", data, err)
		}
	}
}
