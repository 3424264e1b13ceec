package models

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Status
		ok   bool
	}{
		{name: "approved", raw: "approved", want: StatusApproved, ok: true},
		{name: "pending", raw: "pending", want: StatusPending, ok: true},
		{name: "rejected", raw: "rejected", want: StatusRejected, ok: true},
		{name: "draft", raw: "draft", want: StatusDraft, ok: true},
		{name: "empty cell is draft", raw: "", want: StatusDraft, ok: true},
		{name: "whitespace only is draft", raw: "   ", want: StatusDraft, ok: true},
		{name: "mixed case", raw: "Approved", want: StatusApproved, ok: true},
		{name: "padded", raw: " pending ", want: StatusPending, ok: true},
		{name: "unknown value", raw: "published", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStatus(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ParseStatus(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSyncEligible(t *testing.T) {
	if !StatusApproved.SyncEligible() {
		t.Error("approved must be sync eligible")
	}
	for _, s := range []Status{StatusDraft, StatusPending, StatusRejected} {
		if s.SyncEligible() {
			t.Errorf("%s must not be sync eligible", s)
		}
	}
}

func TestCragStoreID(t *testing.T) {
	c := &Crag{Slug: "longdong"}
	if got := c.StoreID(); got != "longdong" {
		t.Errorf("StoreID with blank ID = %q, want slug fallback", got)
	}
	c.ID = "ld-1"
	if got := c.StoreID(); got != "ld-1" {
		t.Errorf("StoreID = %q, want explicit ID", got)
	}
}

func TestCragContentEquals_IgnoresModeration(t *testing.T) {
	a := &Crag{Slug: "longdong", Name: "龍洞", ClimbingTypes: []string{"sport", "trad"}}
	b := &Crag{Slug: "longdong", Name: "龍洞", ClimbingTypes: []string{"sport", "trad"},
		Status: StatusApproved, ReviewedBy: "mod@nobodyclimb.cc", RoutesCount: 42}
	if !a.ContentEquals(b) {
		t.Error("moderation metadata and derived counts must not affect content equality")
	}

	b.Name = "龍洞岩場"
	if a.ContentEquals(b) {
		t.Error("differing content fields must not compare equal")
	}
}
