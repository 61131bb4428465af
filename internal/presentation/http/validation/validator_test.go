package validation

import (
	"testing"

	"github.com/Additional-Code/bistro/pkg/errorbank"
)

type payload struct {
	Name  string `json:"name_pl" validate:"required"`
	Price *int64 `json:"price_cents" validate:"required,gte=0"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	negative := int64(-5)
	tests := []struct {
		name   string
		in     payload
		fields []string
	}{
		{"missing everything", payload{}, []string{"name_pl", "price_cents"}},
		{"negative price", payload{Name: "Żurek", Price: &negative}, []string{"price_cents"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Validate(tt.in)
			if !errorbank.IsKind(err, errorbank.KindUnprocessableEntity) {
				t.Fatalf("err = %v, want unprocessable", err)
			}
			details := errorbank.From(err).Details()
			if len(details) != len(tt.fields) {
				t.Fatalf("details = %v", details)
			}
			for _, f := range tt.fields {
				if _, ok := details[f]; !ok {
					t.Fatalf("details %v missing %s", details, f)
				}
			}
		})
	}
}

func TestValidatePasses(t *testing.T) {
	price := int64(0)
	if err := New().Validate(payload{Name: "Żurek", Price: &price}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
