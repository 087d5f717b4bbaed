package core

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
)

func TestCondition_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Condition
	}{
		{
			name: "Explicit Syntax",
			input: `key: location
operator: in
value: [US, CA]`,
			want: Condition{Key: "location", Operator: OpIn, Value: []any{"US", "CA"}},
		},
		{
			name: "Explicit Syntax Without Operator Defaults To Equals",
			input: `key: location
value: US`,
			want: Condition{Key: "location", Operator: OpEqual, Value: "US"},
		},
		{
			name:  "Shorthand Simple Key-Value",
			input: `location: US`,
			want:  Condition{Key: "location", Operator: OpEqual, Value: "US"},
		},
		{
			name:  "Shorthand Operator Map",
			input: `groups: { contains: admins }`,
			want:  Condition{Key: "groups", Operator: OpContains, Value: "admins"},
		},
		{
			name:  "Shorthand Range",
			input: `risk_score: { range: [30, 70] }`,
			want:  Condition{Key: "risk_score", Operator: OpRange, Value: []any{uint64(30), uint64(70)}},
		},
		{
			name: "Nested Logic (Any)",
			input: `
any:
  - location: US
  - location: CA
`,
			want: Condition{
				Any: []Condition{
					{Key: "location", Operator: OpEqual, Value: "US"},
					{Key: "location", Operator: OpEqual, Value: "CA"},
				},
			},
		},
		{
			name: "Not Gate",
			input: `
not:
  risk: high
`,
			want: Condition{
				Not: &Condition{Key: "risk", Operator: OpEqual, Value: "high"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Condition
			if err := yaml.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("UnmarshalYAML() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Unmarshal mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCondition_UnmarshalYAML_MultipleKeysBecomeAnd(t *testing.T) {
	input := `
location: US
risk: low
`
	var got Condition
	if err := yaml.Unmarshal([]byte(input), &got); err != nil {
		t.Fatalf("UnmarshalYAML() error = %v", err)
	}

	if len(got.All) != 2 {
		t.Fatalf("expected implicit AND with 2 children, got %+v", got)
	}
	// map iteration order is not fixed, check contents not positions
	byKey := map[string]Condition{}
	for _, child := range got.All {
		byKey[child.Key] = child
	}
	if c := byKey["location"]; c.Operator != OpEqual || c.Value != "US" {
		t.Errorf("location child = %+v", c)
	}
	if c := byKey["risk"]; c.Operator != OpEqual || c.Value != "low" {
		t.Errorf("risk child = %+v", c)
	}
}

func TestCondition_Validate(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{
			name:      "Valid Leaf",
			condition: Condition{Key: "location", Operator: OpEqual, Value: "US"},
		},
		{
			name: "Valid Gate",
			condition: Condition{All: []Condition{
				{Key: "location", Operator: OpEqual, Value: "US"},
			}},
		},
		{
			name:      "Leaf With Invalid Operator",
			condition: Condition{Key: "location", Operator: "matches", Value: "US"},
			wantErr:   true,
		},
		{
			name: "Mixed Leaf And Gate",
			condition: Condition{
				Key: "location", Operator: OpEqual, Value: "US",
				Any: []Condition{{Key: "risk", Operator: OpEqual, Value: "low"}},
			},
			wantErr: true,
		},
		{
			name:      "Empty Node",
			condition: Condition{},
			wantErr:   true,
		},
		{
			name: "Invalid Nested Child",
			condition: Condition{Not: &Condition{
				Key: "location", Operator: "weird", Value: "US",
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCondition_Leaves(t *testing.T) {
	cond := Condition{
		All: []Condition{
			{Key: "a", Operator: OpEqual, Value: 1},
			{Any: []Condition{
				{Key: "b", Operator: OpEqual, Value: 2},
				{Not: &Condition{Key: "c", Operator: OpExists}},
			}},
		},
	}

	var keys []string
	err := cond.Leaves(func(leaf *Condition) error {
		keys = append(keys, leaf.Key)
		return nil
	})
	if err != nil {
		t.Fatalf("Leaves() error = %v", err)
	}

	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Leaves() visited (-want +got):\n%s", diff)
	}
}
