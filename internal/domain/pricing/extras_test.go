package pricing

import (
	"errors"
	"testing"

	"staydesk/internal/domain/shared/fault"
	"staydesk/internal/domain/shared/money"
)

func TestExtraCostModes(t *testing.T) {
	pricer := ExtrasPricer{}
	cases := []struct {
		name  string
		extra Extra
		qty   int
		want  string
	}{
		{"fixed checkbox", Extra{ID: "parking", UnitPrice: money.Must("15", "USD"), Mode: ModeFixed, Control: ControlCheckbox}, 1, "15.00"},
		{"fixed quantity", Extra{ID: "flowers", UnitPrice: money.Must("15", "USD"), Mode: ModeFixed, Control: ControlQuantity}, 3, "45.00"},
		{"per person", Extra{ID: "tour", UnitPrice: money.Must("20", "USD"), Mode: ModePerPerson, Control: ControlCheckbox}, 1, "40.00"},
		{"per night", Extra{ID: "crib", UnitPrice: money.Must("5", "USD"), Mode: ModePerNight, Control: ControlQuantity}, 2, "30.00"},
		{"per person per night", Extra{ID: "breakfast", UnitPrice: money.Must("12.50", "USD"), Mode: ModePerPersonPerNight, Control: ControlCheckbox}, 1, "75.00"},
		{"zero quantity", Extra{ID: "breakfast", UnitPrice: money.Must("12.50", "USD"), Mode: ModePerPersonPerNight, Control: ControlQuantity}, 0, "0.00"},
	}
	for _, tc := range cases {
		got, err := pricer.ExtraCost(tc.extra, tc.qty, 2, 3)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got.StringFixed(2) != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got.StringFixed(2), tc.want)
		}
	}
}

func TestValidateQuantity(t *testing.T) {
	pricer := ExtrasPricer{MaxQuantity: 5}
	checkbox := Extra{ID: "parking", Mode: ModeFixed, Control: ControlCheckbox}
	counter := Extra{ID: "crib", Mode: ModePerNight, Control: ControlQuantity}

	for _, tc := range []struct {
		extra Extra
		qty   int
		ok    bool
	}{
		{checkbox, 0, true},
		{checkbox, 1, true},
		{checkbox, 2, false},
		{counter, 5, true},
		{counter, 6, false},
		{counter, -1, false},
	} {
		err := pricer.ValidateQuantity(tc.extra, tc.qty)
		if tc.ok && err != nil {
			t.Fatalf("%s qty %d: unexpected error %v", tc.extra.ID, tc.qty, err)
		}
		if !tc.ok {
			var verr *fault.ValidationError
			if !errors.As(err, &verr) || verr.Code != fault.CodeQuantityOutOfRange {
				t.Fatalf("%s qty %d: expected quantity_out_of_range, got %v", tc.extra.ID, tc.qty, err)
			}
		}
	}
}

func TestDefaultQuantityLimit(t *testing.T) {
	counter := Extra{ID: "towels", Mode: ModeFixed, Control: ControlQuantity}
	if err := (ExtrasPricer{}).ValidateQuantity(counter, DefaultMaxExtraQuantity); err != nil {
		t.Fatalf("limit itself must be allowed: %v", err)
	}
	if err := (ExtrasPricer{}).ValidateQuantity(counter, DefaultMaxExtraQuantity+1); err == nil {
		t.Fatalf("expected error above default limit")
	}
}

func TestGuestsHonoursChildrenSetting(t *testing.T) {
	if got := (ExtrasPricer{}).Guests(2, 2); got != 2 {
		t.Fatalf("adults only: got %d", got)
	}
	if got := (ExtrasPricer{ChildrenCountAsGuests: true}).Guests(2, 2); got != 4 {
		t.Fatalf("with children: got %d", got)
	}
}

func TestUnknownModeIsComputationError(t *testing.T) {
	_, err := (ExtrasPricer{}).ExtraCost(Extra{ID: "x", UnitPrice: money.Must("1", "USD"), Mode: "hourly", Control: ControlQuantity}, 1, 1, 1)
	if fault.KindOf(err) != fault.KindComputation {
		t.Fatalf("expected computation error, got %v", err)
	}
}
