package tv

import "testing"

func TestPanelTechnology(t *testing.T) {
	tests := map[string]string{
		"QE55Q80T":  "QLED",
		"UN55D8000": "LED",
		"PS51E490":  "Plasma",
		"LE40C530":  "LCD",
		"KE55S9C":   "OLED",
		"XX00":      "Unknown",
		"":          "Unknown",
	}
	for model, want := range tests {
		if got := PanelTechnology(model); got != want {
			t.Errorf("PanelTechnology(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestPanelType(t *testing.T) {
	tests := []struct {
		model string
		year  int
		want  string
	}{
		{"QE55Q80T", 2020, "UHD"},
		{"UN55D8000", 2011, "FullHD"},
		{"UE55KS7000", 2016, "SUHD"},
		{"UE46ES8000", 2012, "Slim"},
		{"UE55KU6000", 2016, "UHD"},
		{"PS51EP490", 2012, "Plasma"},
		{"UE55X", 2016, "Unknown"},
		{"UE55JZ6000", 2015, "Unknown"},
	}
	for _, tt := range tests {
		if got := PanelType(tt.model, tt.year); got != tt.want {
			t.Errorf("PanelType(%q, %d) = %q, want %q", tt.model, tt.year, got, tt.want)
		}
	}
}

func TestScreenSize(t *testing.T) {
	if n, ok := ScreenSize("UE55KS7000"); !ok || n != 55 {
		t.Errorf("ScreenSize() = %d, %v", n, ok)
	}
	if _, ok := ScreenSize("UE"); ok {
		t.Error("short model should not parse")
	}
	if _, ok := ScreenSize("UEXXKS7000"); ok {
		t.Error("non-numeric size should not parse")
	}
}
