package domain_test

import (
	"encoding/json"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/jengatrack/jengatrack-api/internal/domain"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Money
		wantErr bool
	}{
		{"120000", 12_000_000, false},
		{"1500.50", 150_050, false},
		{"0.01", 1, false},
		{" 1,250,000 ", 125_000_000, false},
		{"1,250,000.50", 125_000_050, false},
		{"12,50", 0, true},
		{"1,2,3", 0, true},
		{",100", 0, true},
		{"1250,000", 0, true},
		{"1,250.5,0", 0, true},
		{"90071992547409.92", 1 << 53, false},
		{"90071992547409.93", 0, true},
		{"-300.00", -30_000, false},
		{"0.005", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1e400", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseMoney(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Amount domain.Money `json:"amount"`
	}{domain.Shillings(380_000)})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"amount":"380000.00"}` {
		t.Errorf("unexpected JSON: %s", out)
	}

	var in struct {
		A domain.Money `json:"a"`
		B domain.Money `json:"b"`
		C domain.Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"1500.50","b":2500,"c":null}`), &in); err != nil {
		t.Fatal(err)
	}
	if in.A != 150_050 || in.B != domain.Shillings(2500) || in.C != 0 {
		t.Errorf("unexpected decode: %+v", in)
	}

	if err := json.Unmarshal([]byte(`{"a":"12.345"}`), &in); err == nil {
		t.Error("expected error for three decimal places")
	}
}

func TestMoney_ArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 in floating point is not 0.3.
	sum, err := domain.SumMoney(domain.MustMoney("0.10"), domain.MustMoney("0.20"))
	if err != nil {
		t.Fatal(err)
	}
	if sum != domain.MustMoney("0.30") {
		t.Errorf("expected 0.30, got %s", sum)
	}
	if sum.String() != "0.30" {
		t.Errorf("expected \"0.30\", got %q", sum.String())
	}
}

func TestMoney_AddRejectsOutOfRange(t *testing.T) {
	if got, ok := domain.MaxMoney.Add(-1); !ok || got != domain.MaxMoney-1 {
		t.Errorf("expected MaxMoney-1, got %s ok=%v", got, ok)
	}
	if _, ok := domain.MaxMoney.Add(1); ok {
		t.Error("expected MaxMoney+1 to be rejected")
	}
	if _, ok := domain.Money(-domain.MaxMoney).Sub(1); ok {
		t.Error("expected -MaxMoney-1 to be rejected")
	}
	if _, ok := domain.Money(1 << 62).Add(1 << 62); ok {
		t.Error("expected operands beyond MaxMoney to be rejected before adding")
	}

	amounts := make([]domain.Money, 1100)
	for i := range amounts {
		amounts[i] = domain.MaxMoney - 1
	}
	if _, err := domain.SumMoney(amounts...); err == nil {
		t.Fatal("expected SumMoney to fail instead of wrapping")
	}
}

func TestParseTransferMethod(t *testing.T) {
	tests := map[string]domain.TransferMethod{
		"mobile_money":  domain.TransferMobileMoney,
		"Mobile Money":  domain.TransferMobileMoney,
		"Bank Transfer": domain.TransferBank,
		"cash":          domain.TransferCashHandover,
		"Cash Handover": domain.TransferCashHandover,
	}
	for in, want := range tests {
		got, ok := domain.ParseTransferMethod(in)
		if !ok || got != want {
			t.Errorf("ParseTransferMethod(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := domain.ParseTransferMethod("cheque"); ok {
		t.Error("expected cheque to be rejected")
	}
}

func TestParseDate(t *testing.T) {
	d, err := domain.ParseDate("date", "2024-05-10T09:30:00.000Z")
	if err != nil {
		t.Fatal(err)
	}
	if d != (civil.Date{Year: 2024, Month: 5, Day: 10}) {
		t.Errorf("unexpected date %s", d)
	}

	for _, bad := range []string{"", "10/05/2024", "2024-02-30"} {
		_, err := domain.ParseDate("ledger.date", bad)
		ve, ok := err.(*domain.ErrValidation)
		if !ok {
			t.Errorf("ParseDate(%q): expected validation error, got %v", bad, err)
			continue
		}
		if ve.Field != "ledger.date" {
			t.Errorf("ParseDate(%q): field = %q", bad, ve.Field)
		}
	}

	if d, err := domain.ParseOptionalDate("endDate", nil); d != nil || err != nil {
		t.Errorf("nil date should clear: %v %v", d, err)
	}
}

func TestNewListResponse_NeverNil(t *testing.T) {
	out, err := json.Marshal(domain.NewListResponse[domain.Task](nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"data":[],"total":0}` {
		t.Errorf("unexpected JSON: %s", out)
	}
}
