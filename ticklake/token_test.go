package ticklake

import (
	"reflect"
	"testing"
)

func TestSplitPathFormat(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{
			"yyyymmdd/s/sss.csv.gz",
			[]string{"yyyymmdd", "/", "s", "/", "sss", ".", "csv", ".", "gz"},
		},
		{
			"xx/xxxxx.csv",
			[]string{"xx", "/", "xxxxx", ".", "csv"},
		},
		{
			"yyyymmdd/ss/ssmy.csv.gz",
			[]string{"yyyymmdd", "/", "ss", "/", "ssmy", ".", "csv", ".", "gz"},
		},
		{
			"so_detailed.csv",
			[]string{"so_detailed", ".", "csv"},
		},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := splitPathFormat(tt.format)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitPathFormat(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestTokenizePathFormat(t *testing.T) {
	tests := []struct {
		format           string
		wantTemplates    []string
		wantPlaceholders [][]Placeholder
	}{
		{
			"yyyymmdd/s/sss.csv.gz",
			[]string{"{yyyymmdd}/", "{s}/{sss}.csv.gz"},
			[][]Placeholder{
				{PlaceholderDate},
				{PlaceholderSymbolStart, PlaceholderSymbol},
			},
		},
		{
			"yyyymmdd/ss/ssmy.csv.gz",
			[]string{"{yyyymmdd}/", "{ss}/{ssmy}.csv.gz"},
			[][]Placeholder{
				{PlaceholderDate},
				{PlaceholderProduct, PlaceholderTradingCode},
			},
		},
		{
			// Unrecognized names stay literal.
			"so_detailed.csv",
			[]string{"so_detailed.csv"},
			[][]Placeholder{nil},
		},
		{
			// Near-miss names are literal, not placeholders.
			"ssss/sss.csv",
			[]string{"ssss/{sss}.csv"},
			[][]Placeholder{{PlaceholderSymbol}},
		},
		{
			"",
			[]string{""},
			[][]Placeholder{nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			tokens := TokenizePathFormat(tt.format)
			if len(tokens) != len(tt.wantTemplates) {
				t.Fatalf("got %d tokens, want %d", len(tokens), len(tt.wantTemplates))
			}
			for i := range tokens {
				if got := tokens[i].String(); got != tt.wantTemplates[i] {
					t.Errorf("token %d = %q, want %q", i, got, tt.wantTemplates[i])
				}
				if got := tokens[i].Placeholders(); !reflect.DeepEqual(got, tt.wantPlaceholders[i]) {
					t.Errorf("token %d placeholders = %v, want %v", i, got, tt.wantPlaceholders[i])
				}
			}
		})
	}
}

func TestTokenizePathFormatAxes(t *testing.T) {
	tokens := TokenizePathFormat("yyyymmdd/s/sss.csv.gz")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if tokens[0].Axis() != AxisDate {
		t.Errorf("token 0 axis = %v, want date", tokens[0].Axis())
	}
	if tokens[1].Axis() != AxisSymbol {
		t.Errorf("token 1 axis = %v, want symbol", tokens[1].Axis())
	}

	literal := TokenizePathFormat("static/file.csv")
	if len(literal) != 1 || literal[0].Axis() != AxisNone {
		t.Errorf("literal format should yield one axis-free token, got %v", literal)
	}
}

func TestTokenRender(t *testing.T) {
	tokens := TokenizePathFormat("yyyymmdd/s/sss.csv.gz")
	fills := map[Placeholder]string{
		PlaceholderSymbolStart: "A",
		PlaceholderSymbol:      "ABC",
	}
	got, err := tokens[1].render(fills)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "A/ABC.csv.gz" {
		t.Errorf("render = %q, want %q", got, "A/ABC.csv.gz")
	}
}

func TestTokenRenderMissingFill(t *testing.T) {
	tokens := TokenizePathFormat("sss.csv")
	_, err := tokens[0].render(nil)
	if err == nil {
		t.Fatal("expected error for missing fill value")
	}
}
