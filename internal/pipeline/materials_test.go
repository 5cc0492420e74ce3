package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

func TestMapMaterialType(t *testing.T) {
	cases := []struct {
		name     string
		category string
		rawType  string
		want     enums.MaterialType
	}{
		{name: "categoryOverridesPackaging", category: "Packaging & Shipping", rawType: "Primary Fabric", want: enums.MaterialTypePackaging},
		{name: "categoryOverridesLabeling", category: "Labels", rawType: "Woven Fabric", want: enums.MaterialTypeLabeling},
		{name: "hangTagIsLabeling", category: "Hang Tags", rawType: "Cardstock", want: enums.MaterialTypeLabeling},
		{name: "fabricKeyword", category: "Shell Fabrication", rawType: "Primary Fabric", want: enums.MaterialTypeFabric},
		{name: "textileKeyword", category: "Lining", rawType: "Textile", want: enums.MaterialTypeFabric},
		{name: "hardwareKeyword", category: "Closures", rawType: "Metal Hardware", want: enums.MaterialTypeHardware},
		{name: "zipperIsHardware", category: "Closures", rawType: "YKK Zipper", want: enums.MaterialTypeHardware},
		{name: "trimKeyword", category: "Finishing", rawType: "Decorative Trim", want: enums.MaterialTypeTrim},
		{name: "threadIsNotion", category: "Assembly", rawType: "Polyester Thread", want: enums.MaterialTypeNotion},
		{name: "buttonIsNotion", category: "Closures", rawType: "Corozo Button", want: enums.MaterialTypeNotion},
		{name: "unknownDefaultsToFabric", category: "Misc", rawType: "Something Else", want: enums.MaterialTypeFabric},
		{name: "caseInsensitive", category: "PACKAGING", rawType: "", want: enums.MaterialTypePackaging},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapMaterialType(tc.category, tc.rawType); got != tc.want {
				t.Fatalf("MapMaterialType(%q, %q) = %s, want %s", tc.category, tc.rawType, got, tc.want)
			}
		})
	}
}

func TestMapCertification(t *testing.T) {
	cases := []struct {
		raw  string
		want enums.CertificationType
	}{
		{raw: "OEKO-TEX Standard 100", want: enums.CertificationOekoTex},
		{raw: "GOTS certified", want: enums.CertificationGOTS},
		{raw: "ISO 9001:2015", want: enums.CertificationISO9001},
		{raw: "ISO 14001", want: enums.CertificationISO14001},
		{raw: "Fairtrade", want: enums.CertificationFairTrade},
		{raw: "BSCI audit", want: enums.CertificationBSCI},
		{raw: "REACH compliant", want: enums.CertificationREACH},
		{raw: "Totally made up", want: enums.CertificationOther},
		{raw: "", want: enums.CertificationOther},
	}
	for _, tc := range cases {
		if got := MapCertification(tc.raw); got != tc.want {
			t.Fatalf("MapCertification(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plainNumber", raw: `2.5`, want: "2.5"},
		{name: "integer", raw: `12`, want: "12"},
		{name: "freeTextWithUnit", raw: `"5 pieces"`, want: "5"},
		{name: "freeTextDecimal", raw: `"2.5 meters"`, want: "2.5"},
		{name: "numberEmbeddedLater", raw: `"approx 3 rolls"`, want: "3"},
		{name: "noDigits", raw: `"five"`, wantErr: true},
		{name: "emptyString", raw: `""`, wantErr: true},
		{name: "missing", raw: ``, wantErr: true},
		{name: "wrongType", raw: `true`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseQuantity(json.RawMessage(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %s", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tc.want {
				t.Fatalf("ParseQuantity(%s) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}
