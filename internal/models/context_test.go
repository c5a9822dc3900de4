package models

import "testing"

func TestContextValidate(t *testing.T) {
	tests := []struct {
		name        string
		ctx         *Context
		expectError bool
	}{
		{
			name: "valid bank context",
			ctx:  NewContext("TXN-1", "STMT-1", SourceBank),
		},
		{
			name: "valid secu context",
			ctx:  NewContext("TXN-2", "STMT-1", SourceSecu),
		},
		{
			name:        "missing transaction id",
			ctx:         NewContext("", "STMT-1", SourceBank),
			expectError: true,
		},
		{
			name:        "unknown source type",
			ctx:         NewContext("TXN-3", "STMT-1", SourceType("CARD")),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ctx.Validate()
			if tt.expectError && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestContextSetStatusAppendsCheckpoints(t *testing.T) {
	ec := NewContext("TXN-1", "STMT-1", SourceBank)

	ec.SetStatus(StatusCurrencyValidated)
	ec.SetStatus(StatusFXConverted)

	if ec.ProcessingStatus != StatusFXConverted {
		t.Errorf("expected status %s, got %s", StatusFXConverted, ec.ProcessingStatus)
	}
	if len(ec.ProcessedSteps) != 2 {
		t.Fatalf("expected 2 processed steps, got %d", len(ec.ProcessedSteps))
	}
	if ec.ProcessedSteps[0] != StatusCurrencyValidated {
		t.Errorf("processed steps lost ordering: %v", ec.ProcessedSteps)
	}
}

func TestContextEnrichment(t *testing.T) {
	ec := NewContext("TXN-1", "STMT-1", SourceBank)

	if got := ec.Enrichment(KeyCounterpartyID, SentinelUnknown); got != SentinelUnknown {
		t.Errorf("expected fallback, got %s", got)
	}

	ec.Enrich(KeyCounterpartyID, "CPT0143")
	if got := ec.Enrichment(KeyCounterpartyID, SentinelUnknown); got != "CPT0143" {
		t.Errorf("expected CPT0143, got %s", got)
	}
}

func TestContextFieldValue(t *testing.T) {
	ec := NewContext("TXN-1", "STMT-1", SourceBank)
	ec.PaymentDescription = "WIRE TRANSFER"
	ec.DebitCredit = "C"
	ec.SecuType = "BUY"

	tests := []struct {
		field string
		want  string
		ok    bool
	}{
		{"payment_description", "WIRE TRANSFER", true},
		{"debit_credit", "C", true},
		{"d_c", "C", true},
		{"type", "BUY", true},
		{"Payment_Description", "WIRE TRANSFER", true},
		{"no_such_field", "", false},
	}

	for _, tt := range tests {
		got, ok := ec.FieldValue(tt.field)
		if ok != tt.ok || got != tt.want {
			t.Errorf("FieldValue(%q) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.ok)
		}
	}
}
